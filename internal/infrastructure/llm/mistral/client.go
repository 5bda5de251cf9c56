package mistral

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
	"github.com/pzhurov/papersmith/internal/infrastructure/resilience"
)

// Client talks to a Mistral-flavored OpenAI-compatible API: chat completions
// for structured extraction, the OCR endpoint for text, and the models
// listing as a connectivity probe.
type Client struct {
	baseURL    string
	chatModel  string
	ocrModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, chatModel, ocrModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		ocrModel:   ocrModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// ResolveAPIKey prefers the plaintext key, else base64-decodes the obscured
// one. A string that fails to decode is treated as already-plaintext.
func ResolveAPIKey(settings domain.Settings) (string, error) {
	if settings.APIKey != "" {
		return settings.APIKey, nil
	}
	if settings.EncryptedAPIKey == "" {
		return "", domain.WrapError(domain.ErrNoAPIKey, "resolve api key",
			fmt.Errorf("settings has neither apiKey nor encryptedApiKey"))
	}
	decoded, err := base64.StdEncoding.DecodeString(settings.EncryptedAPIKey)
	if err != nil {
		slog.Warn("api_key_decode_failed_using_raw_value", "error", err)
		return settings.EncryptedAPIKey, nil
	}
	return string(decoded), nil
}

// TestConnection issues a lightweight authenticated request. It reports
// reachability and never returns an error.
func (c *Client) TestConnection(ctx context.Context, settings domain.Settings) bool {
	apiKey, err := ResolveAPIKey(settings)
	if err != nil {
		return false
	}
	var out struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, "/v1/models", apiKey, &out, "test connection"); err != nil {
		slog.Warn("connection_test_failed", "error", err)
		return false
	}
	return true
}

// OCR submits the document as a base64 data URL and concatenates the returned
// pages in index order.
func (c *Client) OCR(ctx context.Context, data []byte, settings domain.Settings) (string, error) {
	apiKey, err := ResolveAPIKey(settings)
	if err != nil {
		return "", err
	}

	request := map[string]any{
		"model": c.ocrModel,
		"document": map[string]any{
			"type":         "document_url",
			"document_url": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		},
	}

	var response struct {
		Pages []struct {
			Index    int    `json:"index"`
			Markdown string `json:"markdown"`
		} `json:"pages"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/ocr", apiKey, request, &response, "ocr")
	}
	if err := c.executor.Execute(ctx, "mistral.ocr", call, classifyMistralError); err != nil {
		return "", wrapProviderError("ocr", err)
	}

	pages := response.Pages
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, page.Markdown)
	}
	return strings.Join(parts, "\n\n"), nil
}

// ExtractStructured sends the instruction prompt plus the document text and
// returns the first balanced JSON object found in the completion content.
func (c *Client) ExtractStructured(ctx context.Context, text string, settings domain.Settings) (json.RawMessage, error) {
	apiKey, err := ResolveAPIKey(settings)
	if err != nil {
		return nil, err
	}

	request := map[string]any{
		"model":       c.chatModel,
		"temperature": 0.1,
		"messages": []map[string]any{
			{"role": "system", "content": extractionSystemPrompt},
			{"role": "user", "content": buildExtractionPrompt(text)},
		},
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", apiKey, request, &response, "extract")
	}
	if err := c.executor.Execute(ctx, "mistral.extract", call, classifyMistralError); err != nil {
		return nil, wrapProviderError("extract", err)
	}

	if len(response.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrAIProvider, "extract",
			fmt.Errorf("no choices in completion response"))
	}

	content := response.Choices[0].Message.Content
	object, ok := firstJSONObject(content)
	if !ok {
		return nil, domain.WrapError(domain.ErrNoJSON, "extract",
			fmt.Errorf("completion content has no json object (%d bytes)", len(content)))
	}
	return json.RawMessage(object), nil
}

// firstJSONObject scans for the first balanced {...} object, tolerating prose
// and markdown fences around it. String literals and escapes are honored.
func firstJSONObject(content string) (string, bool) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}
