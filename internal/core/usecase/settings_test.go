package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

func TestSettingsUpdateReplacesRecordAndForcesTesting(t *testing.T) {
	store := &settingsStoreFake{settings: domain.Settings{
		ID:               1,
		APIKey:           "old-key",
		ConnectionStatus: domain.ConnectionConnected,
	}}
	uc := NewSettingsUseCase(store, &testerFake{})

	view, err := uc.Update(context.Background(), "new-key", "")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if view.ConnectionStatus != domain.ConnectionTesting {
		t.Fatalf("expected testing status, got %s", view.ConnectionStatus)
	}
	if store.settings.APIKey != "new-key" || store.settings.EncryptedAPIKey != "" {
		t.Fatalf("record not replaced: %+v", store.settings)
	}
	if store.settings.LastTested != nil {
		t.Fatalf("replace semantics must clear lastTested")
	}
}

func TestSettingsUpdateRequiresSomeKey(t *testing.T) {
	uc := NewSettingsUseCase(&settingsStoreFake{}, &testerFake{})
	if _, err := uc.Update(context.Background(), "", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSettingsTestUpdatesStatusAndLastTested(t *testing.T) {
	store := &settingsStoreFake{settings: domain.Settings{ID: 1, APIKey: "sk", ConnectionStatus: domain.ConnectionTesting}}
	uc := NewSettingsUseCase(store, &testerFake{ok: true})
	uc.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	view, err := uc.Test(context.Background())
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if view.ConnectionStatus != domain.ConnectionConnected {
		t.Fatalf("expected connected, got %s", view.ConnectionStatus)
	}
	if view.LastTested == nil || !view.LastTested.Equal(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected lastTested %v", view.LastTested)
	}
}

func TestSettingsTestFailure(t *testing.T) {
	store := &settingsStoreFake{settings: domain.Settings{ID: 1, EncryptedAPIKey: "c2s="}}
	uc := NewSettingsUseCase(store, &testerFake{ok: false})

	view, err := uc.Test(context.Background())
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if view.ConnectionStatus != domain.ConnectionFailed {
		t.Fatalf("expected failed, got %s", view.ConnectionStatus)
	}
}

func TestSettingsTestWithoutKey(t *testing.T) {
	uc := NewSettingsUseCase(&settingsStoreFake{}, &testerFake{ok: true})
	if _, err := uc.Test(context.Background()); !domain.IsKind(err, domain.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}
