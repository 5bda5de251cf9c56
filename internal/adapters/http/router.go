// Package httpadapter exposes the document review API over plain net/http.
package httpadapter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/core/ports"
	"github.com/pzhurov/papersmith/internal/observability/metrics"
)

//go:embed openapi.yaml
var openAPISpec []byte

type Router struct {
	uploader  ports.DocumentUploader
	processor ports.DocumentProcessor
	reader    ports.DocumentReader
	updater   ports.DocumentUpdater
	deleter   ports.DocumentDeleter
	generator ports.DocumentGenerator
	settings  ports.SettingsService

	metrics *metrics.HTTPServerMetrics

	uploadMaxBytes int64
	rateLimitRPS   int
	rateLimitBurst int
	maxConcurrent  int
}

type Options struct {
	Metrics        *metrics.HTTPServerMetrics
	UploadMaxBytes int64
	RateLimitRPS   int
	RateLimitBurst int
	MaxConcurrent  int
}

func NewRouter(
	uploader ports.DocumentUploader,
	processor ports.DocumentProcessor,
	reader ports.DocumentReader,
	updater ports.DocumentUpdater,
	deleter ports.DocumentDeleter,
	generator ports.DocumentGenerator,
	settings ports.SettingsService,
	options Options,
) *Router {
	uploadMax := options.UploadMaxBytes
	if uploadMax <= 0 {
		uploadMax = 10 << 20
	}
	return &Router{
		uploader:       uploader,
		processor:      processor,
		reader:         reader,
		updater:        updater,
		deleter:        deleter,
		generator:      generator,
		settings:       settings,
		metrics:        options.Metrics,
		uploadMaxBytes: uploadMax,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxConcurrent:  options.MaxConcurrent,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.yaml", rt.openAPI)
	mux.HandleFunc("/documents", rt.listDocuments)
	mux.HandleFunc("/documents/upload", rt.uploadDocument)
	mux.HandleFunc("/documents/", rt.documentSubtree)
	mux.HandleFunc("/settings", rt.settingsRoot)
	mux.HandleFunc("/settings/test", rt.settingsTest)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	if rt.maxConcurrent > 0 {
		handler = backpressureMiddleware(handler, rt.maxConcurrent, 100*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.uploadMaxBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.uploader.Upload(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	docs, err := rt.reader.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// documentSubtree dispatches /documents/{id} and /documents/{id}/{action}.
func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/documents/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch action {
	case "":
		rt.documentByID(w, r, id)
	case "process":
		rt.processDocument(w, r, id)
	case "generate":
		rt.generateDocument(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		doc, err := rt.reader.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPatch:
		rt.patchDocument(w, r, id)
	case http.MethodDelete:
		if err := rt.deleter.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeMethodNotAllowed(w)
	}
}

func (rt *Router) patchDocument(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		ExtractedData json.RawMessage `json:"extractedData"`
		CompanyData   json.RawMessage `json:"companyData"`
		Status        *string         `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	patch := ports.UpdateRequest{
		ExtractedData: req.ExtractedData,
		CompanyData:   req.CompanyData,
	}
	if req.Status != nil {
		status := domain.DocumentStatus(*req.Status)
		patch.Status = &status
	}

	doc, err := rt.updater.Patch(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	start := time.Now()
	doc, err := rt.processor.Process(r.Context(), id)
	if rt.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		rt.metrics.RecordExtraction("api", outcome, time.Since(start))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) generateDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req struct {
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Format == "" {
		req.Format = "pdf"
	}

	generated, err := rt.generator.Generate(r.Context(), id, req.Format)
	if rt.metrics != nil {
		rt.metrics.RecordGeneration("api", req.Format, err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", generated.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", generated.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(generated.Content)
}

func (rt *Router) settingsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		view, err := rt.settings.Get(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPost:
		var req struct {
			APIKey          string `json:"apiKey"`
			EncryptedAPIKey string `json:"encryptedApiKey"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		view, err := rt.settings.Update(r.Context(), req.APIKey, req.EncryptedAPIKey)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeMethodNotAllowed(w)
	}
}

func (rt *Router) settingsTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	view, err := rt.settings.Test(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
