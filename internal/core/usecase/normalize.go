package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

const (
	defaultSectionInfo    = "Document Information"
	defaultSectionContent = "Content"
)

// Normalize turns a raw AI extraction into the canonical shape: every field
// gets an id, detectedSections is never empty, structure and metadata are
// filled in. The input stays untyped; schema validation happens afterwards and
// is the hard gate. Normalizing already-normalized output is byte-identical.
func Normalize(raw json.RawMessage, now time.Time) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrSchemaValidation, "decode extraction", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if _, ok := doc["documentType"].(string); !ok {
		doc["documentType"] = "unknown"
	}

	fields := normalizeFields(doc["fields"])
	doc["fields"] = fields

	sections, ok := doc["detectedSections"].([]any)
	if !ok || len(sections) == 0 {
		doc["detectedSections"] = synthesizeSections(fields)
	}

	doc["structure"] = normalizeStructure(doc["structure"], fields)
	doc["metadata"] = normalizeMetadata(doc["metadata"], len(fields), now)

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode normalized extraction: %w", err)
	}
	return out, nil
}

func normalizeFields(raw any) []any {
	list, ok := raw.([]any)
	if !ok {
		return []any{}
	}

	seen := make(map[string]bool, len(list))
	for _, item := range list {
		if field, ok := item.(map[string]any); ok {
			if id, ok := field["id"].(string); ok && id != "" {
				seen[id] = true
			}
		}
	}

	out := make([]any, 0, len(list))
	for i, item := range list {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := field["id"].(string); !ok || id == "" {
			field["id"] = syntheticFieldID(i, seen)
		}
		if section, ok := field["section"].(string); !ok || section == "" {
			field["section"] = defaultSectionContent
		}
		field["type"] = normalizeFieldType(field["type"], field["value"])
		if field["type"] == string(domain.FieldTable) {
			field["value"] = normalizeTableValue(field["value"])
		}
		if _, ok := field["label"].(string); !ok {
			field["label"] = field["id"]
		}
		if _, ok := field["required"].(bool); !ok {
			field["required"] = false
		}
		out = append(out, field)
	}
	return out
}

// syntheticFieldID is field_<position+1>, bumped past any id the AI already used.
func syntheticFieldID(index int, seen map[string]bool) string {
	n := index + 1
	id := "field_" + strconv.Itoa(n)
	for seen[id] {
		n++
		id = "field_" + strconv.Itoa(n)
	}
	seen[id] = true
	return id
}

var fieldTypeSynonyms = map[string]string{
	"string":     "text",
	"str":        "text",
	"int":        "number",
	"integer":    "number",
	"float":      "number",
	"numeric":    "number",
	"bool":       "boolean",
	"checkbox":   "boolean",
	"datetime":   "date",
	"title":      "heading",
	"header":     "heading",
	"text_block": "paragraph",
	"multiline":  "textarea",
	"dropdown":   "select",
}

func normalizeFieldType(raw, value any) string {
	if s, ok := raw.(string); ok {
		s = strings.ToLower(strings.TrimSpace(s))
		if mapped, ok := fieldTypeSynonyms[s]; ok {
			s = mapped
		}
		if domainFieldType(s) {
			return s
		}
	}
	return inferFieldType(value)
}

func domainFieldType(s string) bool {
	switch domain.FieldType(s) {
	case domain.FieldText, domain.FieldNumber, domain.FieldDate, domain.FieldEmail,
		domain.FieldPhone, domain.FieldTextarea, domain.FieldSelect, domain.FieldBoolean,
		domain.FieldTable, domain.FieldHeading, domain.FieldParagraph:
		return true
	default:
		return false
	}
}

func inferFieldType(value any) string {
	switch v := value.(type) {
	case []any:
		return string(domain.FieldTable)
	case bool:
		return string(domain.FieldBoolean)
	case float64:
		return string(domain.FieldNumber)
	case string:
		if len(v) > 120 {
			return string(domain.FieldTextarea)
		}
		return string(domain.FieldText)
	default:
		return string(domain.FieldText)
	}
}

// normalizeTableValue stringifies scalar cells without reshaping the matrix.
// Anything that is not a row list is left alone for schema validation to
// reject.
func normalizeTableValue(raw any) any {
	rows, ok := raw.([]any)
	if !ok {
		return raw
	}
	out := make([]any, 0, len(rows))
	for _, rawRow := range rows {
		row, ok := rawRow.([]any)
		if !ok {
			return raw
		}
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, stringifyCell(cell))
		}
		out = append(out, cells)
	}
	return out
}

func stringifyCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// synthesizeSections groups fields by section name, first occurrence deciding
// the order. With no fields at all, two minimal default sections come back.
func synthesizeSections(fields []any) []any {
	if len(fields) == 0 {
		return []any{
			defaultSection("section_1", defaultSectionInfo, 0),
			defaultSection("section_2", defaultSectionContent, 1),
		}
	}

	var names []string
	grouped := make(map[string][]map[string]any)
	for _, item := range fields {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := field["section"].(string)
		if _, ok := grouped[name]; !ok {
			names = append(names, name)
		}
		grouped[name] = append(grouped[name], field)
	}

	sections := make([]any, 0, len(names))
	for i, name := range names {
		group := grouped[name]
		sections = append(sections, map[string]any{
			"id":       "section_" + strconv.Itoa(i+1),
			"title":    name,
			"type":     string(domain.SectionFieldGroup),
			"preview":  sectionPreview(group),
			"fields":   []any{},
			"selected": true,
			"order":    i,
		})
	}
	return sections
}

func defaultSection(id, title string, order int) map[string]any {
	return map[string]any{
		"id":       id,
		"title":    title,
		"type":     string(domain.SectionFieldGroup),
		"preview":  "",
		"fields":   []any{},
		"selected": true,
		"order":    order,
	}
}

func sectionPreview(group []map[string]any) string {
	if len(group) == 1 {
		if v, ok := group[0]["value"].(string); ok && v != "" {
			const maxPreview = 80
			if len(v) > maxPreview {
				return v[:maxPreview]
			}
			return v
		}
	}
	return fmt.Sprintf("%d fields", len(group))
}

func normalizeStructure(raw any, fields []any) map[string]any {
	structure, ok := raw.(map[string]any)
	if !ok {
		structure = map[string]any{}
	}
	hasHeaders, hasTables := false, false
	for _, item := range fields {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch field["type"] {
		case string(domain.FieldHeading):
			hasHeaders = true
		case string(domain.FieldTable):
			hasTables = true
		}
	}
	if _, ok := structure["hasHeaders"].(bool); !ok {
		structure["hasHeaders"] = hasHeaders
	}
	if _, ok := structure["hasTables"].(bool); !ok {
		structure["hasTables"] = hasTables
	}
	if _, ok := structure["hasLists"].(bool); !ok {
		structure["hasLists"] = false
	}
	return structure
}

func normalizeMetadata(raw any, totalFields int, now time.Time) map[string]any {
	metadata, ok := raw.(map[string]any)
	if !ok {
		metadata = map[string]any{}
	}
	if _, ok := metadata["extractedAt"].(string); !ok {
		metadata["extractedAt"] = now.UTC().Format(time.RFC3339)
	}
	if _, ok := metadata["confidence"].(float64); !ok {
		metadata["confidence"] = 0.0
	}
	metadata["totalFields"] = totalFields
	return metadata
}
