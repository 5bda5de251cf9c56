package memory

import (
	"context"
	"sync"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

type SettingsStore struct {
	mu       sync.RWMutex
	settings domain.Settings
	stored   bool
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

// Get returns the stored record, or the untested default before the first
// Replace.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.stored {
		return domain.Settings{ID: 1, ConnectionStatus: domain.ConnectionUntested}, nil
	}
	return s.settings, nil
}

func (s *SettingsStore) Replace(ctx context.Context, settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.ID = 1
	s.settings = settings
	s.stored = true
	return nil
}
