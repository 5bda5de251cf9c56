package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

// DocumentsUseCase covers the plain read, update and delete operations.
type DocumentsUseCase struct {
	store     ports.DocumentStore
	storage   ports.ObjectStorage
	validator ports.SchemaValidator
	events    ports.EventPublisher
}

func NewDocumentsUseCase(
	store ports.DocumentStore,
	storage ports.ObjectStorage,
	validator ports.SchemaValidator,
	events ports.EventPublisher,
) *DocumentsUseCase {
	return &DocumentsUseCase{store: store, storage: storage, validator: validator, events: events}
}

func (uc *DocumentsUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.store.GetByID(ctx, id)
}

func (uc *DocumentsUseCase) List(ctx context.Context) ([]domain.Document, error) {
	return uc.store.List(ctx)
}

// Patch applies a partial update. Extracted data in the payload is schema
// validated before touching the store; status changes must follow the state
// machine.
func (uc *DocumentsUseCase) Patch(ctx context.Context, id string, req ports.UpdateRequest) (*domain.Document, error) {
	doc, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := domain.DocumentPatch{CompanyData: req.CompanyData}

	if len(req.ExtractedData) > 0 {
		if err := uc.validator.Validate(req.ExtractedData); err != nil {
			return nil, domain.WrapError(domain.ErrSchemaValidation, "validate patch payload", err)
		}
		var extracted domain.ExtractedData
		if err := json.Unmarshal(req.ExtractedData, &extracted); err != nil {
			return nil, domain.WrapError(domain.ErrSchemaValidation, "decode patch payload", err)
		}
		patch.ExtractedData = &extracted
	}

	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, domain.WrapError(domain.ErrInvalidInput, "patch document",
				fmt.Errorf("unknown status %q", *req.Status))
		}
		if *req.Status != doc.Status && !domain.ValidTransition(doc.Status, *req.Status) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "patch document",
				fmt.Errorf("illegal status transition %s -> %s", doc.Status, *req.Status))
		}
		patch.Status = req.Status
	}

	updated, err := uc.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status == domain.StatusCompleted {
		uc.publish(ctx, id, "completed")
	}
	return updated, nil
}

// Delete removes the record and, best-effort, the stored blob. A missing blob
// never fails the logical delete.
func (uc *DocumentsUseCase) Delete(ctx context.Context, id string) error {
	if _, err := uc.store.GetByID(ctx, id); err != nil {
		return err
	}
	if err := uc.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	if err := uc.storage.Remove(ctx, id+".pdf"); err != nil {
		slog.Warn("blob_delete_failed", "document_id", id, "error", err)
	}
	uc.publish(ctx, id, "deleted")
	return nil
}

func (uc *DocumentsUseCase) publish(ctx context.Context, id, event string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentEvent(ctx, id, event); err != nil {
		slog.Warn("lifecycle_event_publish_failed", "document_id", id, "event", event, "error", err)
	}
}
