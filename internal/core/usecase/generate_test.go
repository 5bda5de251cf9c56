package usecase

import (
	"context"
	"testing"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

func TestGenerateRequiresExtractedData(t *testing.T) {
	store := newStoreFake(&domain.Document{ID: "doc-1", Status: domain.StatusUploaded})
	uc := NewGenerateDocumentUseCase(store, &rendererFake{})

	_, err := uc.Generate(context.Background(), "doc-1", "pdf")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGenerateReturnsAttachment(t *testing.T) {
	store := newStoreFake(&domain.Document{
		ID:               "doc-1",
		OriginalFileName: "supplier coa.pdf",
		Status:           domain.StatusProcessed,
		ExtractedData:    &domain.ExtractedData{DocumentType: "coa"},
	})
	uc := NewGenerateDocumentUseCase(store, &rendererFake{content: []byte("%PDF"), mime: "application/pdf"})

	file, err := uc.Generate(context.Background(), "doc-1", "pdf")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if file.MIMEType != "application/pdf" {
		t.Fatalf("unexpected mime %q", file.MIMEType)
	}
	if file.Filename != "supplier coa-branded.pdf" {
		t.Fatalf("unexpected filename %q", file.Filename)
	}
	if len(file.Content) == 0 {
		t.Fatalf("empty content")
	}
}

func TestGenerateDoesNotMutateDocument(t *testing.T) {
	store := newStoreFake(&domain.Document{
		ID:            "doc-1",
		Status:        domain.StatusProcessed,
		ExtractedData: &domain.ExtractedData{DocumentType: "coa"},
	})
	uc := NewGenerateDocumentUseCase(store, &rendererFake{content: []byte("x"), mime: "application/pdf"})

	if _, err := uc.Generate(context.Background(), "doc-1", "pdf"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	doc, _ := store.GetByID(context.Background(), "doc-1")
	if doc.Status != domain.StatusProcessed {
		t.Fatalf("generation must not touch status, got %s", doc.Status)
	}
}
