package history

import (
	"context"

	"advisorbot/models"
)

// Repository persists chat session transcripts.
type Repository interface {
	// StartSession creates an empty transcript and returns its session ID.
	StartSession(ctx context.Context) (string, error)
	// LogTurn appends one user/agent exchange to a session transcript.
	LogTurn(ctx context.Context, sessionID string, turn models.Turn) error
	// GetSession returns the full transcript for a session, oldest first.
	GetSession(ctx context.Context, sessionID string) ([]models.Turn, error)
	// ListSessions returns all known session IDs, most recent first.
	ListSessions(ctx context.Context) ([]string, error)
}
