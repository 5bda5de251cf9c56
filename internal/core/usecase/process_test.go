package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

const validExtraction = `{
	"documentType": "certificate_of_analysis",
	"fields": [
		{"label": "Product Name", "value": "Toluene", "type": "text", "section": "Product"},
		{"label": "Purity", "value": "99.9%", "type": "text", "section": "Product"}
	]
}`

func settingsWithKey() *settingsStoreFake {
	return &settingsStoreFake{settings: domain.Settings{ID: 1, APIKey: "sk-test"}}
}

func newProcessUC(store *storeFake, settings *settingsStoreFake, text *textFake, ai *aiFake, fallback *fallbackFake) (*ProcessDocumentUseCase, *eventsFake) {
	events := &eventsFake{}
	var fb ports.FallbackExtractor
	if fallback != nil {
		fb = fallback
	}
	uc := NewProcessDocumentUseCase(store, settings, text, ai, fb, &validatorFake{}, events)
	return uc, events
}

func TestProcessSuccessStampsProcessedAt(t *testing.T) {
	created := time.Now().UTC().Add(-time.Minute)
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded, CreatedAt: created})
	uc, events := newProcessUC(store, settingsWithKey(), &textFake{text: "Toluene 99.9%"}, &aiFake{raw: []byte(validExtraction)}, nil)

	doc, err := uc.Process(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if doc.Status != domain.StatusProcessed {
		t.Fatalf("expected status processed, got %s", doc.Status)
	}
	if doc.ProcessedAt == nil {
		t.Fatalf("expected processedAt to be stamped")
	}
	if doc.ProcessedAt.Before(created) {
		t.Fatalf("processedAt %v precedes createdAt %v", doc.ProcessedAt, created)
	}
	if doc.ExtractedData == nil || len(doc.ExtractedData.Fields) != 2 {
		t.Fatalf("expected 2 extracted fields, got %+v", doc.ExtractedData)
	}
	if len(doc.ExtractedData.DetectedSections) == 0 {
		t.Fatalf("expected non-empty detectedSections")
	}

	wantStatuses := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusProcessed}
	if len(store.statusCalls) != 2 || store.statusCalls[0] != wantStatuses[0] || store.statusCalls[1] != wantStatuses[1] {
		t.Fatalf("unexpected status sequence %v", store.statusCalls)
	}
	if len(events.events) != 1 || events.events[0] != "doc-1:processed" {
		t.Fatalf("unexpected events %v", events.events)
	}
}

func TestProcessWithoutAPIKeyLeavesStatusUntouched(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	uc, _ := newProcessUC(store, &settingsStoreFake{}, &textFake{text: "irrelevant"}, &aiFake{}, nil)

	_, err := uc.Process(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if len(store.statusCalls) != 0 {
		t.Fatalf("status must not change on missing key, got %v", store.statusCalls)
	}
}

func TestProcessMarksErrorAndKeepsExtractedDataUnset(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	ai := &aiFake{err: domain.WrapError(domain.ErrNoJSON, "extract", context.Canceled)}
	uc, events := newProcessUC(store, settingsWithKey(), &textFake{text: "text"}, ai, nil)

	_, err := uc.Process(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}

	doc, _ := store.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusError {
		t.Fatalf("expected status error, got %s", doc.Status)
	}
	if doc.ExtractedData != nil {
		t.Fatalf("extracted data must stay unset on failure")
	}
	if len(events.events) != 1 || events.events[0] != "doc-1:error" {
		t.Fatalf("unexpected events %v", events.events)
	}
}

func TestProcessRetryFromErrorStatus(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusError})
	uc, _ := newProcessUC(store, settingsWithKey(), &textFake{text: "text"}, &aiFake{raw: []byte(validExtraction)}, nil)

	doc, err := uc.Process(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Process() retry error = %v", err)
	}
	if doc.Status != domain.StatusProcessed {
		t.Fatalf("expected processed after retry, got %s", doc.Status)
	}
}

func TestProcessRejectsIllegalStartingStatus(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusCompleted})
	uc, _ := newProcessUC(store, settingsWithKey(), &textFake{text: "text"}, &aiFake{raw: []byte(validExtraction)}, nil)

	_, err := uc.Process(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProcessUsesFallbackOnTerminalAIFailure(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	ai := &aiFake{err: domain.WrapError(domain.ErrRateLimited, "extract", context.DeadlineExceeded)}
	fallback := &fallbackFake{raw: []byte(validExtraction)}
	uc, _ := newProcessUC(store, settingsWithKey(), &textFake{text: "Product: Toluene"}, ai, fallback)

	doc, err := uc.Process(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Process() with fallback error = %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("expected 1 fallback call, got %d", fallback.calls)
	}
	if doc.Status != domain.StatusProcessed {
		t.Fatalf("expected processed via fallback, got %s", doc.Status)
	}
}

func TestProcessFallbackNotUsedForMalformedResponse(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	ai := &aiFake{err: domain.WrapError(domain.ErrNoJSON, "extract", context.Canceled)}
	fallback := &fallbackFake{raw: []byte(validExtraction)}
	uc, _ := newProcessUC(store, settingsWithKey(), &textFake{text: "text"}, ai, fallback)

	_, err := uc.Process(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback must not run for malformed responses, got %d calls", fallback.calls)
	}
}

func TestProcessSchemaFailureIsHard(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	events := &eventsFake{}
	uc := NewProcessDocumentUseCase(
		store, settingsWithKey(), &textFake{text: "text"},
		&aiFake{raw: []byte(validExtraction)}, nil,
		&validatorFake{err: context.Canceled}, events,
	)

	_, err := uc.Process(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	doc, _ := store.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusError {
		t.Fatalf("expected status error, got %s", doc.Status)
	}
}
