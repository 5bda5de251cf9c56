package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

// DocumentUploader is the inbound contract for accepting a supplier PDF.
type DocumentUploader interface {
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor runs the extraction pipeline for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID string) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document records.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// DocumentUpdater applies partial updates, validating extracted data and
// status transitions before anything is persisted.
type DocumentUpdater interface {
	Patch(ctx context.Context, id string, patch UpdateRequest) (*domain.Document, error)
}

// UpdateRequest carries the raw PATCH payload. ExtractedData stays untyped
// until it passes schema validation.
type UpdateRequest struct {
	ExtractedData json.RawMessage
	CompanyData   json.RawMessage
	Status        *domain.DocumentStatus
}

// DocumentDeleter removes a record and, best-effort, its stored file blob.
type DocumentDeleter interface {
	Delete(ctx context.Context, id string) error
}

// DocumentGenerator renders a processed document into downloadable bytes.
type DocumentGenerator interface {
	Generate(ctx context.Context, id, format string) (*GeneratedFile, error)
}

type GeneratedFile struct {
	Content  []byte
	MIMEType string
	Filename string
}

// SettingsService manages the singleton settings slot.
type SettingsService interface {
	Get(ctx context.Context) (domain.SettingsView, error)
	Update(ctx context.Context, apiKey, encryptedAPIKey string) (domain.SettingsView, error)
	Test(ctx context.Context) (domain.SettingsView, error)
}
