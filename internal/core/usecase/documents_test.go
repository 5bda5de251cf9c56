package usecase

import (
	"context"
	"testing"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

func TestPatchValidatesExtractedData(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusProcessed})
	uc := NewDocumentsUseCase(store, newStorageFake(), &validatorFake{err: context.Canceled}, nil)

	_, err := uc.Patch(context.Background(), "doc-1", ports.UpdateRequest{
		ExtractedData: []byte(`{"documentType":"x"}`),
	})
	if !domain.IsKind(err, domain.ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
}

func TestPatchRejectsIllegalStatusTransition(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	uc := NewDocumentsUseCase(store, newStorageFake(), &validatorFake{}, nil)

	completed := domain.StatusCompleted
	_, err := uc.Patch(context.Background(), "doc-1", ports.UpdateRequest{Status: &completed})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPatchCompletesProcessedDocument(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusProcessed})
	events := &eventsFake{}
	uc := NewDocumentsUseCase(store, newStorageFake(), &validatorFake{}, events)

	completed := domain.StatusCompleted
	doc, err := uc.Patch(context.Background(), "doc-1", ports.UpdateRequest{Status: &completed})
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if doc.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}
	if len(events.events) != 1 || events.events[0] != "doc-1:completed" {
		t.Fatalf("unexpected events %v", events.events)
	}
}

func TestPatchSameStatusIsNoOp(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusProcessed})
	uc := NewDocumentsUseCase(store, newStorageFake(), &validatorFake{}, nil)

	processed := domain.StatusProcessed
	if _, err := uc.Patch(context.Background(), "doc-1", ports.UpdateRequest{Status: &processed}); err != nil {
		t.Fatalf("same-status patch should succeed, got %v", err)
	}
}

func TestDeleteRemovesBlobBestEffort(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	storage := newStorageFake()
	storage.removeErr = context.Canceled
	uc := NewDocumentsUseCase(store, storage, &validatorFake{}, nil)

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() must swallow blob errors, got %v", err)
	}
	if len(storage.removeKeys) != 1 || storage.removeKeys[0] != "doc-1.pdf" {
		t.Fatalf("expected blob removal attempt, got %v", storage.removeKeys)
	}
	if _, err := store.GetByID(context.Background(), "doc-1"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	uc := NewDocumentsUseCase(newStoreFake(), newStorageFake(), &validatorFake{}, nil)
	if err := uc.Delete(context.Background(), "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
