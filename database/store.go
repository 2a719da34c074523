package database

import (
	"encoding/json"
	"fmt"
	"os"

	"advisorbot/models"

	"go.uber.org/zap"
)

// SlotStore owns the on-disk representation of all slots and the waitlist.
// Every Save is a full-document overwrite; there is no incremental update.
type SlotStore interface {
	Load() (*models.Store, error)
	Save(store *models.Store) error
}

// Replicator is a best-effort replication hook invoked after every
// successful save. Its failure must never fail the caller.
type Replicator interface {
	Replicate()
}

// FileSlotStore is the JSON-file implementation of SlotStore.
type FileSlotStore struct {
	Path       string
	Replicator Replicator
	Logger     *zap.Logger
}

func NewFileSlotStore(path string, replicator Replicator, logger *zap.Logger) *FileSlotStore {
	return &FileSlotStore{Path: path, Replicator: replicator, Logger: logger}
}

// Load reads and decodes the store file. A missing or malformed file is a
// hard error; recovery is the caller's responsibility.
func (s *FileSlotStore) Load() (*models.Store, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("slot store: read %s: %w", s.Path, err)
	}
	var store models.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("slot store: decode %s: %w", s.Path, err)
	}
	if store.Slots == nil {
		return nil, fmt.Errorf("slot store: %s has no slots document", s.Path)
	}
	if store.Waitlist == nil {
		store.Waitlist = []models.WaitlistEntry{}
	}
	return &store, nil
}

// Save overwrites the store file with the full aggregate, then fires the
// replication hook if one is configured.
func (s *FileSlotStore) Save(store *models.Store) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("slot store: encode: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("slot store: write %s: %w", s.Path, err)
	}
	if s.Replicator != nil {
		s.Replicator.Replicate()
	}
	return nil
}

// EnsureProvisioned creates the store file with a freshly provisioned slot
// window when it does not exist yet. An existing file is left untouched.
func (s *FileSlotStore) EnsureProvisioned(startDate, endDate string) error {
	if _, err := os.Stat(s.Path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("slot store: stat %s: %w", s.Path, err)
	}

	store, err := ProvisionStore(startDate, endDate)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("slot store: encode: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("slot store: write %s: %w", s.Path, err)
	}
	if s.Logger != nil {
		s.Logger.Sugar().Infof("Provisioned slot store %s with %d dates", s.Path, len(store.Slots))
	}
	return nil
}
