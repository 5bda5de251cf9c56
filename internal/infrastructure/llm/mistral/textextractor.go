package mistral

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

// TextExtractor is the remote OCR strategy: it reads the stored blob and
// hands it to the OCR endpoint. Near-empty results are a hard failure rather
// than a silent empty document.
type TextExtractor struct {
	client     *Client
	storage    ports.ObjectStorage
	minTextLen int
}

func NewTextExtractor(client *Client, storage ports.ObjectStorage, minTextLen int) *TextExtractor {
	if minTextLen <= 0 {
		minTextLen = 10
	}
	return &TextExtractor{client: client, storage: storage, minTextLen: minTextLen}
}

func (e *TextExtractor) ExtractText(ctx context.Context, storageKey string, settings domain.Settings) (string, error) {
	reader, err := e.storage.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	text, err := e.client.OCR(ctx, data, settings)
	if err != nil {
		return "", fmt.Errorf("ocr document: %w", err)
	}
	if len(strings.TrimSpace(text)) < e.minTextLen {
		return "", domain.WrapError(domain.ErrInsufficientText, "ocr document",
			fmt.Errorf("ocr produced %d usable bytes, need %d", len(strings.TrimSpace(text)), e.minTextLen))
	}
	return text, nil
}
