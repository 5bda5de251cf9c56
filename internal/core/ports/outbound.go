package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

// DocumentStore persists document records.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// SettingsStore holds the single settings record with replace semantics.
type SettingsStore interface {
	Get(ctx context.Context) (domain.Settings, error)
	Replace(ctx context.Context, settings domain.Settings) error
}

// ObjectStorage stores uploaded file blobs keyed by document id.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// TextExtractor produces the raw text of a stored document, either from the
// local PDF text layer or via a remote OCR call.
type TextExtractor interface {
	ExtractText(ctx context.Context, storageKey string, settings domain.Settings) (string, error)
}

// StructuredExtractor asks the AI provider for a structured JSON guess of the
// document content. The result is untyped until normalization.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, text string, settings domain.Settings) (json.RawMessage, error)
}

// FallbackExtractor synthesizes a structured result from raw text with local
// heuristics when the AI provider is unavailable.
type FallbackExtractor interface {
	ExtractStructured(text string) json.RawMessage
}

// ConnectionTester checks AI provider reachability with the configured key.
type ConnectionTester interface {
	TestConnection(ctx context.Context, settings domain.Settings) bool
}

// SchemaValidator checks untyped extraction output against the canonical
// extracted-data schema.
type SchemaValidator interface {
	Validate(data []byte) error
}

// Renderer turns a processed document into output bytes for one format.
type Renderer interface {
	Render(doc *domain.Document, format string) (content []byte, mimeType string, err error)
}

// EventPublisher emits document lifecycle notifications, best-effort.
type EventPublisher interface {
	PublishDocumentEvent(ctx context.Context, documentID, event string) error
}
