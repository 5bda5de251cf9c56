package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

// UploadDocumentUseCase accepts a supplier PDF and creates the document
// record. Blobs are stored flat, keyed <id>.pdf.
type UploadDocumentUseCase struct {
	store   ports.DocumentStore
	storage ports.ObjectStorage
	events  ports.EventPublisher
}

func NewUploadDocumentUseCase(
	store ports.DocumentStore,
	storage ports.ObjectStorage,
	events ports.EventPublisher,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{store: store, storage: storage, events: events}
}

func (uc *UploadDocumentUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("only pdf files are accepted, got %q", filename))
	}

	id := uuid.NewString()
	if err := uc.storage.Save(ctx, id+".pdf", body); err != nil {
		return nil, fmt.Errorf("save uploaded file: %w", err)
	}

	doc := &domain.Document{
		ID:               id,
		OriginalFileName: filepath.Base(filename),
		Status:           domain.StatusUploaded,
		CreatedAt:        time.Now().UTC(),
	}
	if err := uc.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if uc.events != nil {
		if err := uc.events.PublishDocumentEvent(ctx, doc.ID, "uploaded"); err != nil {
			slog.Warn("lifecycle_event_publish_failed", "document_id", doc.ID, "event", "uploaded", "error", err)
		}
	}
	return doc, nil
}
