// Package pdftext extracts the embedded text layer of a PDF locally, without
// any remote OCR call.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
)

type Extractor struct {
	storage    ports.ObjectStorage
	minTextLen int
}

func NewExtractor(storage ports.ObjectStorage, minTextLen int) *Extractor {
	if minTextLen <= 0 {
		minTextLen = 10
	}
	return &Extractor{storage: storage, minTextLen: minTextLen}
}

func (e *Extractor) ExtractText(ctx context.Context, storageKey string, _ domain.Settings) (string, error) {
	reader, err := e.storage.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	text, err := readTextLayer(data)
	if err != nil {
		return "", fmt.Errorf("read pdf text layer: %w", err)
	}
	if len(strings.TrimSpace(text)) < e.minTextLen {
		return "", domain.WrapError(domain.ErrInsufficientText, "read pdf text layer",
			fmt.Errorf("text layer has %d usable bytes, need %d", len(strings.TrimSpace(text)), e.minTextLen))
	}
	return text, nil
}

// readTextLayer recovers from panics: the pdf library panics on malformed
// cross-reference tables instead of returning an error.
func readTextLayer(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("collect text: %w", err)
	}
	return buf.String(), nil
}
