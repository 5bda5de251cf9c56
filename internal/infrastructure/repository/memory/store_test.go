package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

func newDoc(id string, createdAt time.Time) *domain.Document {
	return &domain.Document{
		ID:               id,
		OriginalFileName: id + ".pdf",
		Status:           domain.StatusUploaded,
		CreatedAt:        createdAt,
	}
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	if err := store.Create(ctx, newDoc("a", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err := store.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.OriginalFileName != "a.pdf" || doc.Status != domain.StatusUploaded {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("get missing: err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentStoreListNewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Create(ctx, newDoc(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("list: got %d documents", len(docs))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if docs[i].ID != want {
			t.Fatalf("list[%d] = %s, want %s", i, docs[i].ID, want)
		}
	}
}

func TestDocumentStoreUpdateStampsProcessedAt(t *testing.T) {
	store := NewDocumentStore()
	stamp := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return stamp }
	ctx := context.Background()

	if err := store.Create(ctx, newDoc("a", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	processing := domain.StatusProcessing
	if _, err := store.Update(ctx, "a", domain.DocumentPatch{Status: &processing}); err != nil {
		t.Fatalf("update to processing: %v", err)
	}
	doc, _ := store.GetByID(ctx, "a")
	if doc.ProcessedAt != nil {
		t.Fatalf("processedAt stamped on processing transition")
	}

	processed := domain.StatusProcessed
	updated, err := store.Update(ctx, "a", domain.DocumentPatch{Status: &processed})
	if err != nil {
		t.Fatalf("update to processed: %v", err)
	}
	if updated.ProcessedAt == nil || !updated.ProcessedAt.Equal(stamp) {
		t.Fatalf("processedAt = %v, want %v", updated.ProcessedAt, stamp)
	}

	if _, err := store.Update(ctx, "missing", domain.DocumentPatch{Status: &processed}); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("update missing: err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentStoreReturnsCopies(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := newDoc("a", time.Now())
	doc.ExtractedData = &domain.ExtractedData{
		DocumentType: "coa",
		Fields: []domain.Field{
			{ID: "field_1", Label: "Results", Type: domain.FieldTable, Section: "Content",
				Value: domain.GridValue([][]string{{"Parameter", "Result"}, {"Assay", "99.5"}})},
		},
		DetectedSections: []domain.Section{
			{ID: "section_1", Title: "Content", Type: domain.SectionFieldGroup, Selected: true},
		},
	}
	if err := store.Create(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	doc.ExtractedData.Fields[0].Value.Grid[1][1] = "tampered"
	first, _ := store.GetByID(ctx, "a")
	if got := first.ExtractedData.Fields[0].Value.Grid[1][1]; got != "99.5" {
		t.Fatalf("stored grid cell = %q, want 99.5", got)
	}

	first.ExtractedData.Fields[0].Label = "tampered"
	second, _ := store.GetByID(ctx, "a")
	if second.ExtractedData.Fields[0].Label != "Results" {
		t.Fatalf("stored label mutated through returned copy")
	}
}

func TestDocumentStoreDelete(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	if err := store.Create(ctx, newDoc("a", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("second delete: err = %v, want ErrDocumentNotFound", err)
	}
}

func TestSettingsStoreDefaultAndReplace(t *testing.T) {
	store := NewSettingsStore()
	ctx := context.Background()

	settings, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if settings.ConnectionStatus != domain.ConnectionUntested || settings.HasAPIKey() {
		t.Fatalf("default settings: %+v", settings)
	}

	if err := store.Replace(ctx, domain.Settings{APIKey: "k", ConnectionStatus: domain.ConnectionTesting}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	settings, _ = store.Get(ctx)
	if settings.ID != 1 || settings.APIKey != "k" || settings.ConnectionStatus != domain.ConnectionTesting {
		t.Fatalf("settings after replace: %+v", settings)
	}
}
