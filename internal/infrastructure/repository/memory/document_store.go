// Package memory provides map-backed stores for single-process deployments
// and tests. Stores hand out deep copies so callers can never alias the
// stored state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
	now  func() time.Time
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*domain.Document),
		now:  time.Now,
	}
}

func (s *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return cloneDocument(doc), nil
}

func (s *DocumentStore) List(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *cloneDocument(doc))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *DocumentStore) Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	if patch.ExtractedData != nil {
		doc.ExtractedData = cloneExtractedData(patch.ExtractedData)
	}
	if patch.CompanyData != nil {
		doc.CompanyData = append([]byte(nil), patch.CompanyData...)
	}
	if patch.Status != nil {
		doc.Status = *patch.Status
		if *patch.Status == domain.StatusProcessed {
			stamped := s.now().UTC()
			doc.ProcessedAt = &stamped
		}
	}
	return cloneDocument(doc), nil
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

func cloneDocument(doc *domain.Document) *domain.Document {
	out := *doc
	if doc.ExtractedData != nil {
		out.ExtractedData = cloneExtractedData(doc.ExtractedData)
	}
	if doc.CompanyData != nil {
		out.CompanyData = append([]byte(nil), doc.CompanyData...)
	}
	if doc.ProcessedAt != nil {
		stamped := *doc.ProcessedAt
		out.ProcessedAt = &stamped
	}
	return &out
}

func cloneExtractedData(data *domain.ExtractedData) *domain.ExtractedData {
	out := *data
	out.DetectedSections = append([]domain.Section(nil), data.DetectedSections...)
	out.Fields = make([]domain.Field, len(data.Fields))
	for i, f := range data.Fields {
		out.Fields[i] = cloneField(f)
	}
	return &out
}

func cloneField(f domain.Field) domain.Field {
	if f.Layout != nil {
		layout := *f.Layout
		f.Layout = &layout
	}
	if f.Options != nil {
		f.Options = append([]string(nil), f.Options...)
	}
	if f.Value.IsTable() {
		grid := make([][]string, len(f.Value.Grid))
		for i, row := range f.Value.Grid {
			grid[i] = append([]string(nil), row...)
		}
		f.Value = domain.GridValue(grid)
	}
	return f
}
