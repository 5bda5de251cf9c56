package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the singleton settings row, or the untested default when the
// row has never been written.
func (s *SettingsStore) Get(ctx context.Context) (domain.Settings, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, api_key, encrypted_api_key, last_tested, connection_status
FROM settings
WHERE id = 1
`)

	var (
		settings   domain.Settings
		lastTested sql.NullTime
		status     string
	)
	err := row.Scan(&settings.ID, &settings.APIKey, &settings.EncryptedAPIKey, &lastTested, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Settings{ID: 1, ConnectionStatus: domain.ConnectionUntested}, nil
		}
		return domain.Settings{}, fmt.Errorf("scan settings: %w", err)
	}

	if lastTested.Valid {
		stamped := lastTested.Time
		settings.LastTested = &stamped
	}
	settings.ConnectionStatus = domain.ConnectionStatus(status)
	return settings, nil
}

func (s *SettingsStore) Replace(ctx context.Context, settings domain.Settings) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (id, api_key, encrypted_api_key, last_tested, connection_status)
VALUES (1, $1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET api_key = EXCLUDED.api_key,
    encrypted_api_key = EXCLUDED.encrypted_api_key,
    last_tested = EXCLUDED.last_tested,
    connection_status = EXCLUDED.connection_status
`, settings.APIKey, settings.EncryptedAPIKey, settings.LastTested, string(settings.ConnectionStatus))
	if err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
