package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

type storeFake struct {
	docs        map[string]*domain.Document
	statusCalls []domain.DocumentStatus
	updateErr   error
	createErr   error
}

func newStoreFake(docs ...*domain.Document) *storeFake {
	f := &storeFake{docs: map[string]*domain.Document{}}
	for _, d := range docs {
		copied := *d
		f.docs[d.ID] = &copied
	}
	return f
}

func (f *storeFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	return nil
}

func (f *storeFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", io.EOF)
	}
	copied := *doc
	return &copied, nil
}

func (f *storeFake) List(_ context.Context) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *storeFake) Update(_ context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update document", io.EOF)
	}
	if patch.ExtractedData != nil {
		doc.ExtractedData = patch.ExtractedData
	}
	if patch.CompanyData != nil {
		doc.CompanyData = patch.CompanyData
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
		f.statusCalls = append(f.statusCalls, *patch.Status)
		if *patch.Status == domain.StatusProcessed {
			now := time.Now().UTC()
			doc.ProcessedAt = &now
		}
	}
	copied := *doc
	return &copied, nil
}

func (f *storeFake) Delete(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", io.EOF)
	}
	delete(f.docs, id)
	return nil
}

type settingsStoreFake struct {
	settings domain.Settings
	replaced []domain.Settings
	getErr   error
}

func (f *settingsStoreFake) Get(context.Context) (domain.Settings, error) {
	if f.getErr != nil {
		return domain.Settings{}, f.getErr
	}
	return f.settings, nil
}

func (f *settingsStoreFake) Replace(_ context.Context, s domain.Settings) error {
	f.settings = s
	f.replaced = append(f.replaced, s)
	return nil
}

type storageFake struct {
	blobs      map[string][]byte
	saveErr    error
	removeErr  error
	removeKeys []string
}

func newStorageFake() *storageFake {
	return &storageFake{blobs: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.blobs[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.blobs[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removeKeys = append(f.removeKeys, key)
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.blobs, key)
	return nil
}

type textFake struct {
	text string
	err  error
}

func (f *textFake) ExtractText(context.Context, string, domain.Settings) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type aiFake struct {
	raw   json.RawMessage
	err   error
	calls int
}

func (f *aiFake) ExtractStructured(context.Context, string, domain.Settings) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type fallbackFake struct {
	raw   json.RawMessage
	calls int
}

func (f *fallbackFake) ExtractStructured(string) json.RawMessage {
	f.calls++
	return f.raw
}

type validatorFake struct {
	err error
}

func (f *validatorFake) Validate([]byte) error { return f.err }

type eventsFake struct {
	events []string
}

func (f *eventsFake) PublishDocumentEvent(_ context.Context, id, event string) error {
	f.events = append(f.events, id+":"+event)
	return nil
}

type rendererFake struct {
	content []byte
	mime    string
	err     error
}

func (f *rendererFake) Render(*domain.Document, string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.content, f.mime, nil
}

type testerFake struct {
	ok bool
}

func (f *testerFake) TestConnection(context.Context, domain.Settings) bool { return f.ok }
