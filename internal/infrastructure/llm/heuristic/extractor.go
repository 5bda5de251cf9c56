// Package heuristic synthesizes a minimal structured extraction from raw
// document text when the AI provider cannot be reached at all. It is a
// configured policy, never a silent per-call switch.
package heuristic

import (
	"encoding/json"
	"strings"
)

const (
	headingMaxLen   = 60
	paragraphMinLen = 120

	sectionInfo    = "Document Information"
	sectionContent = "Content"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// ExtractStructured turns text lines into fields: "key: value" lines become
// text fields, short lines headings, long lines paragraphs. The result always
// spans the two default sections and flows through the same
// normalize-and-validate path as AI output.
func (e *Extractor) ExtractStructured(text string) json.RawMessage {
	fields := make([]map[string]any, 0, 16)
	order := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if key, value, ok := splitKeyValue(line); ok {
			fields = append(fields, field(key, value, "text", sectionInfo, order))
			order++
			continue
		}
		if len(line) <= headingMaxLen {
			fields = append(fields, field(line, line, "heading", sectionContent, order))
		} else if len(line) >= paragraphMinLen {
			fields = append(fields, field("Paragraph", line, "paragraph", sectionContent, order))
		} else {
			fields = append(fields, field("Text", line, "text", sectionContent, order))
		}
		order++
	}

	// Both sections must end up non-empty for a usable document.
	if !hasSection(fields, sectionInfo) {
		fields = append(fields, field("Source", "local text extraction", "text", sectionInfo, order))
		order++
	}
	if !hasSection(fields, sectionContent) {
		fields = append(fields, field("Content", "No recognizable content", "paragraph", sectionContent, order))
	}

	doc := map[string]any{
		"documentType": "unknown",
		"fields":       fields,
		"metadata": map[string]any{
			"confidence": 0.2,
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func splitKeyValue(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx == len(line)-1 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	value := strings.TrimSpace(line[idx+1:])
	if key == "" || value == "" || len(key) > 40 {
		return "", "", false
	}
	return key, value, true
}

func field(label, value, fieldType, section string, order int) map[string]any {
	return map[string]any{
		"label":    label,
		"value":    value,
		"type":     fieldType,
		"section":  section,
		"required": false,
		"layout":   map[string]any{"order": order},
	}
}

func hasSection(fields []map[string]any, name string) bool {
	for _, f := range fields {
		if f["section"] == name {
			return true
		}
	}
	return false
}
