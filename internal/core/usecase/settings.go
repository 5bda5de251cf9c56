package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

// SettingsUseCase manages the singleton settings slot. Updates replace the
// record wholesale and force connectionStatus back to testing until an
// explicit connectivity check refreshes it.
type SettingsUseCase struct {
	store  ports.SettingsStore
	tester ports.ConnectionTester
	now    func() time.Time
}

func NewSettingsUseCase(store ports.SettingsStore, tester ports.ConnectionTester) *SettingsUseCase {
	return &SettingsUseCase{store: store, tester: tester, now: time.Now}
}

func (uc *SettingsUseCase) Get(ctx context.Context) (domain.SettingsView, error) {
	settings, err := uc.store.Get(ctx)
	if err != nil {
		return domain.SettingsView{}, fmt.Errorf("fetch settings: %w", err)
	}
	return settings.View(), nil
}

func (uc *SettingsUseCase) Update(ctx context.Context, apiKey, encryptedAPIKey string) (domain.SettingsView, error) {
	if apiKey == "" && encryptedAPIKey == "" {
		return domain.SettingsView{}, domain.WrapError(domain.ErrInvalidInput, "update settings",
			fmt.Errorf("apiKey or encryptedApiKey is required"))
	}

	settings := domain.Settings{
		ID:               1,
		APIKey:           apiKey,
		EncryptedAPIKey:  encryptedAPIKey,
		ConnectionStatus: domain.ConnectionTesting,
	}
	if err := uc.store.Replace(ctx, settings); err != nil {
		return domain.SettingsView{}, fmt.Errorf("replace settings: %w", err)
	}
	return settings.View(), nil
}

func (uc *SettingsUseCase) Test(ctx context.Context) (domain.SettingsView, error) {
	settings, err := uc.store.Get(ctx)
	if err != nil {
		return domain.SettingsView{}, fmt.Errorf("fetch settings: %w", err)
	}
	if !settings.HasAPIKey() {
		return domain.SettingsView{}, domain.WrapError(domain.ErrNoAPIKey, "test connection",
			fmt.Errorf("settings has no key material"))
	}

	now := uc.now().UTC()
	settings.LastTested = &now
	if uc.tester.TestConnection(ctx, settings) {
		settings.ConnectionStatus = domain.ConnectionConnected
	} else {
		settings.ConnectionStatus = domain.ConnectionFailed
	}

	if err := uc.store.Replace(ctx, settings); err != nil {
		return domain.SettingsView{}, fmt.Errorf("replace settings: %w", err)
	}
	return settings.View(), nil
}
