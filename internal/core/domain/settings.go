package domain

import "time"

type ConnectionStatus string

const (
	ConnectionUntested  ConnectionStatus = "untested"
	ConnectionTesting   ConnectionStatus = "testing"
	ConnectionConnected ConnectionStatus = "connected"
	ConnectionFailed    ConnectionStatus = "failed"
)

// Settings is a singleton record (ID is always 1). EncryptedAPIKey is a
// base64-obscured key, not a cryptographic control; APIKey takes precedence
// when both are present.
type Settings struct {
	ID               int              `json:"id"`
	APIKey           string           `json:"apiKey,omitempty"`
	EncryptedAPIKey  string           `json:"encryptedApiKey,omitempty"`
	LastTested       *time.Time       `json:"lastTested"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
}

func (s Settings) HasAPIKey() bool {
	return s.APIKey != "" || s.EncryptedAPIKey != ""
}

// SettingsView is the outward representation: key material never leaves the
// service, callers only learn whether a key exists.
type SettingsView struct {
	ID               int              `json:"id"`
	HasAPIKey        bool             `json:"hasApiKey"`
	LastTested       *time.Time       `json:"lastTested"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
}

func (s Settings) View() SettingsView {
	return SettingsView{
		ID:               s.ID,
		HasAPIKey:        s.HasAPIKey(),
		LastTested:       s.LastTested,
		ConnectionStatus: s.ConnectionStatus,
	}
}
