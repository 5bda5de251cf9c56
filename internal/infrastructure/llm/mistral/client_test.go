package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/infrastructure/resilience"
)

func fastExecutor(attempts int) *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func completionResponse(content string) []byte {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func keyedSettings() domain.Settings {
	return domain.Settings{ID: 1, APIKey: "sk-test"}
}

func TestResolveAPIKeyPrefersPlaintext(t *testing.T) {
	key, err := ResolveAPIKey(domain.Settings{APIKey: "plain", EncryptedAPIKey: "cGxhaW4y"})
	if err != nil {
		t.Fatalf("ResolveAPIKey() error = %v", err)
	}
	if key != "plain" {
		t.Fatalf("expected plaintext to win, got %q", key)
	}
}

func TestResolveAPIKeyDecodesObscuredKey(t *testing.T) {
	key, err := ResolveAPIKey(domain.Settings{EncryptedAPIKey: "c2stc2VjcmV0"})
	if err != nil {
		t.Fatalf("ResolveAPIKey() error = %v", err)
	}
	if key != "sk-secret" {
		t.Fatalf("expected decoded key, got %q", key)
	}
}

func TestResolveAPIKeyFallsBackToRawOnDecodeFailure(t *testing.T) {
	key, err := ResolveAPIKey(domain.Settings{EncryptedAPIKey: "not base64!!!"})
	if err != nil {
		t.Fatalf("decode failure must not be fatal, got %v", err)
	}
	if key != "not base64!!!" {
		t.Fatalf("expected raw value fallback, got %q", key)
	}
}

func TestResolveAPIKeyWithoutAnyKey(t *testing.T) {
	if _, err := ResolveAPIKey(domain.Settings{}); !domain.IsKind(err, domain.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestExtractStructuredRetriesRateLimitExactly(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer header")
		}
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(completionResponse(`{"documentType":"coa","fields":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "mistral-small-latest", "mistral-ocr-latest", fastExecutor(4))
	raw, err := client.ExtractStructured(context.Background(), "some text", keyedSettings())
	if err != nil {
		t.Fatalf("ExtractStructured() error = %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected exactly 3 outbound attempts, got %d", got)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("returned payload is not json: %v", err)
	}
	if doc["documentType"] != "coa" {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestExtractStructuredExhaustedRateLimit(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New(server.URL, "m", "o", fastExecutor(4))
	_, err := client.ExtractStructured(context.Background(), "text", keyedSettings())
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 4 {
		t.Fatalf("expected 4 attempts before exhaustion, got %d", got)
	}
}

func TestExtractStructuredDoesNotRetryNonRateLimit(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "m", "o", fastExecutor(4))
	_, err := client.ExtractStructured(context.Background(), "text", keyedSettings())
	if !domain.IsKind(err, domain.ErrAIProvider) {
		t.Fatalf("expected ErrAIProvider, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("non-429 must abort immediately, got %d attempts", got)
	}
}

func TestExtractStructuredToleratesMarkdownFences(t *testing.T) {
	content := "Here you go:\n```json\n{\"documentType\":\"sds\",\"fields\":[{\"label\":\"Signal {word}\",\"value\":\"Danger \\\" warning\"}]}\n```\nDone."
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(completionResponse(content))
	}))
	defer server.Close()

	client := New(server.URL, "m", "o", fastExecutor(1))
	raw, err := client.ExtractStructured(context.Background(), "text", keyedSettings())
	if err != nil {
		t.Fatalf("ExtractStructured() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("extracted object is not valid json: %v\nraw: %s", err, raw)
	}
	if doc["documentType"] != "sds" {
		t.Fatalf("unexpected object %s", raw)
	}
}

func TestExtractStructuredNoJSONInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(completionResponse("I could not read the document, sorry."))
	}))
	defer server.Close()

	client := New(server.URL, "m", "o", fastExecutor(1))
	if _, err := client.ExtractStructured(context.Background(), "text", keyedSettings()); !domain.IsKind(err, domain.ErrNoJSON) {
		t.Fatalf("expected ErrNoJSON, got %v", err)
	}
}

func TestFirstJSONObjectBalancing(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"nested", `x {"a":{"b":"}"}} y`, `{"a":{"b":"}"}}`, true},
		{"escaped quote", `{"a":"he said \"}\""}`, `{"a":"he said \"}\""}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "nothing here", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := firstJSONObject(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTestConnectionNeverErrors(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"mistral-small-latest"}]}`))
	}))
	defer good.Close()

	client := New(good.URL, "m", "o", fastExecutor(1))
	if !client.TestConnection(context.Background(), keyedSettings()) {
		t.Fatalf("expected true for healthy endpoint")
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer bad.Close()

	client = New(bad.URL, "m", "o", fastExecutor(1))
	if client.TestConnection(context.Background(), keyedSettings()) {
		t.Fatalf("expected false for auth failure")
	}
	if client.TestConnection(context.Background(), domain.Settings{}) {
		t.Fatalf("expected false without key material")
	}
}

func TestOCRJoinsPagesInIndexOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ocr" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"pages":[{"index":1,"markdown":"second"},{"index":0,"markdown":"first"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "m", "mistral-ocr-latest", fastExecutor(1))
	text, err := client.OCR(context.Background(), []byte("%PDF-1.4"), keyedSettings())
	if err != nil {
		t.Fatalf("OCR() error = %v", err)
	}
	if text != "first\n\nsecond" {
		t.Fatalf("pages not joined in index order: %q", text)
	}
}
