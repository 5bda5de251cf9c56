package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

// GenerateDocumentUseCase produces the branded output file for a processed
// document. The input document is never mutated.
type GenerateDocumentUseCase struct {
	store    ports.DocumentStore
	renderer ports.Renderer
}

func NewGenerateDocumentUseCase(store ports.DocumentStore, renderer ports.Renderer) *GenerateDocumentUseCase {
	return &GenerateDocumentUseCase{store: store, renderer: renderer}
}

func (uc *GenerateDocumentUseCase) Generate(ctx context.Context, id, format string) (*ports.GeneratedFile, error) {
	doc, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ExtractedData == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "generate document",
			fmt.Errorf("document %s has no extracted data", id))
	}

	content, mimeType, err := uc.renderer.Render(doc, format)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	return &ports.GeneratedFile{
		Content:  content,
		MIMEType: mimeType,
		Filename: outputFilename(doc.OriginalFileName, format),
	}, nil
}

func outputFilename(original, format string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" {
		base = "document"
	}
	return base + "-branded." + format
}
