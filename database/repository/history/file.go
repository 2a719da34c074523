package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"advisorbot/models"
)

// FileRepository stores one JSON transcript file per session under Dir,
// named <session_id>.json.
type FileRepository struct {
	Dir string
	mu  sync.Mutex
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{Dir: dir}
}

func (r *FileRepository) sessionPath(sessionID string) string {
	return filepath.Join(r.Dir, sessionID+".json")
}

func (r *FileRepository) StartSession(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("history: create dir %s: %w", r.Dir, err)
	}

	sessionID := "session_" + time.Now().Format("20060102_150405")
	// Timestamp collisions happen when two sessions start in the same
	// second; suffix until the name is free.
	path := r.sessionPath(sessionID)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = r.sessionPath(fmt.Sprintf("%s_%d", sessionID, i))
	}
	sessionID = strings.TrimSuffix(filepath.Base(path), ".json")

	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		return "", fmt.Errorf("history: create session %s: %w", sessionID, err)
	}
	return sessionID, nil
}

func (r *FileRepository) LogTurn(ctx context.Context, sessionID string, turn models.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.sessionPath(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("history: read session %s: %w", sessionID, err)
	}
	var turns []models.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return fmt.Errorf("history: decode session %s: %w", sessionID, err)
	}

	turns = append(turns, turn)
	out, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encode session %s: %w", sessionID, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("history: write session %s: %w", sessionID, err)
	}
	return nil
}

func (r *FileRepository) GetSession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.sessionPath(sessionID))
	if os.IsNotExist(err) {
		return []models.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read session %s: %w", sessionID, err)
	}
	var turns []models.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("history: decode session %s: %w", sessionID, err)
	}
	return turns, nil
}

func (r *FileRepository) ListSessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: list %s: %w", r.Dir, err)
	}

	var sessions []string
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, ".json") {
			sessions = append(sessions, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(sessions)))
	return sessions, nil
}
