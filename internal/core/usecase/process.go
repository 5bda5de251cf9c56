package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

// ProcessDocumentUseCase runs the extraction pipeline for one document:
// text extraction, the AI structured guess, normalization, schema validation.
// The pipeline is synchronous; the caller's request blocks until it finishes.
type ProcessDocumentUseCase struct {
	store     ports.DocumentStore
	settings  ports.SettingsStore
	text      ports.TextExtractor
	ai        ports.StructuredExtractor
	fallback  ports.FallbackExtractor
	validator ports.SchemaValidator
	events    ports.EventPublisher
	now       func() time.Time
}

func NewProcessDocumentUseCase(
	store ports.DocumentStore,
	settings ports.SettingsStore,
	text ports.TextExtractor,
	ai ports.StructuredExtractor,
	fallback ports.FallbackExtractor,
	validator ports.SchemaValidator,
	events ports.EventPublisher,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		store:     store,
		settings:  settings,
		text:      text,
		ai:        ai,
		fallback:  fallback,
		validator: validator,
		events:    events,
		now:       time.Now,
	}
}

func (uc *ProcessDocumentUseCase) Process(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.store.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	settings, err := uc.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}
	if !settings.HasAPIKey() {
		return nil, domain.WrapError(domain.ErrNoAPIKey, "process document", fmt.Errorf("settings has no key material"))
	}

	if !domain.ValidTransition(doc.Status, domain.StatusProcessing) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document",
			fmt.Errorf("cannot process document in status %s", doc.Status))
	}

	processing := domain.StatusProcessing
	if _, err := uc.store.Update(ctx, documentID, domain.DocumentPatch{Status: &processing}); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	extracted, err := uc.runPipeline(ctx, documentID, settings)
	if err != nil {
		if failErr := uc.markError(ctx, documentID); failErr != nil {
			return nil, fmt.Errorf("%w; mark error status: %v", err, failErr)
		}
		uc.publish(ctx, documentID, "error")
		return nil, err
	}

	processed := domain.StatusProcessed
	updated, err := uc.store.Update(ctx, documentID, domain.DocumentPatch{
		ExtractedData: extracted,
		Status:        &processed,
	})
	if err != nil {
		return nil, fmt.Errorf("set status=processed: %w", err)
	}

	uc.publish(ctx, documentID, "processed")
	return updated, nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string, settings domain.Settings) (*domain.ExtractedData, error) {
	text, err := uc.text.ExtractText(ctx, documentID+".pdf", settings)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	raw, err := uc.ai.ExtractStructured(ctx, text, settings)
	if err != nil {
		if uc.fallback == nil || !isTerminalAIFailure(err) {
			return nil, fmt.Errorf("extract structured data: %w", err)
		}
		slog.Warn("ai_extraction_fallback",
			"document_id", documentID,
			"error", err,
		)
		raw = uc.fallback.ExtractStructured(text)
	}

	normalized, err := Normalize(raw, uc.now())
	if err != nil {
		return nil, fmt.Errorf("normalize extraction: %w", err)
	}

	if err := uc.validator.Validate(normalized); err != nil {
		return nil, domain.WrapError(domain.ErrSchemaValidation, "validate extraction", err)
	}

	var extracted domain.ExtractedData
	if err := json.Unmarshal(normalized, &extracted); err != nil {
		return nil, domain.WrapError(domain.ErrSchemaValidation, "decode extraction", err)
	}
	return &extracted, nil
}

// isTerminalAIFailure reports whether the AI call itself could not succeed.
// Only those failures may use the heuristic fallback; a malformed but
// delivered response still fails the document.
func isTerminalAIFailure(err error) bool {
	return domain.IsKind(err, domain.ErrAIProvider) ||
		domain.IsKind(err, domain.ErrRateLimited) ||
		domain.IsKind(err, domain.ErrTemporary)
}

func (uc *ProcessDocumentUseCase) markError(ctx context.Context, documentID string) error {
	status := domain.StatusError
	_, err := uc.store.Update(ctx, documentID, domain.DocumentPatch{Status: &status})
	return err
}

func (uc *ProcessDocumentUseCase) publish(ctx context.Context, documentID, event string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentEvent(ctx, documentID, event); err != nil {
		slog.Warn("lifecycle_event_publish_failed", "document_id", documentID, "event", event, "error", err)
	}
}
