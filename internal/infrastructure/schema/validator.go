// Package schema validates normalized extraction output against the canonical
// extracted-data shape before it is allowed past the normalization boundary.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the extracted-data schema once.
func NewValidator() (*Validator, error) {
	raw, err := json.Marshal(buildExtractedDataSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extracted_data.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("extracted_data.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

func (v *Validator) Validate(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := v.schema.Validate(value); err != nil {
		return fmt.Errorf("payload does not match extracted-data schema: %w", err)
	}
	return nil
}

// buildExtractedDataSchema returns a draft 2020-12 schema as a generic map.
func buildExtractedDataSchema() map[string]any {
	fieldTypes := []string{
		"text", "number", "date", "email", "phone", "textarea",
		"select", "boolean", "table", "heading", "paragraph",
	}
	sectionTypes := []string{"table", "heading", "field_group", "list", "other"}

	scalarOrGrid := []map[string]any{
		{"type": "string"},
		{"type": "number"},
		{"type": "boolean"},
		{"type": "null"},
		{
			"type": "array",
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}

	fieldSchema := map[string]any{
		"type":     "object",
		"required": []string{"id", "label", "type", "section"},
		"properties": map[string]any{
			"id":       map[string]any{"type": "string", "minLength": 1},
			"label":    map[string]any{"type": "string"},
			"value":    map[string]any{"oneOf": scalarOrGrid},
			"type":     map[string]any{"type": "string", "enum": fieldTypes},
			"section":  map[string]any{"type": "string"},
			"required": map[string]any{"type": "boolean"},
			"options": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"layout": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"structureType": map[string]any{"type": "string"},
					"level":         map[string]any{"type": "integer", "minimum": 1, "maximum": 6},
					"columns":       map[string]any{"type": "integer", "minimum": 0},
					"rows":          map[string]any{"type": "integer", "minimum": 0},
					"order":         map[string]any{"type": "integer"},
				},
			},
		},
	}

	sectionSchema := map[string]any{
		"type":     "object",
		"required": []string{"id", "title", "type"},
		"properties": map[string]any{
			"id":       map[string]any{"type": "string", "minLength": 1},
			"title":    map[string]any{"type": "string"},
			"content":  map[string]any{"type": "string"},
			"type":     map[string]any{"type": "string", "enum": sectionTypes},
			"preview":  map[string]any{"type": "string"},
			"fields":   map[string]any{"type": "array", "items": fieldSchema},
			"selected": map[string]any{"type": "boolean"},
			"order":    map[string]any{"type": "integer"},
		},
	}

	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []string{"documentType", "fields", "detectedSections"},
		"properties": map[string]any{
			"documentType": map[string]any{"type": "string"},
			"fields":       map[string]any{"type": "array", "items": fieldSchema},
			"detectedSections": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    sectionSchema,
			},
			"structure": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"hasHeaders": map[string]any{"type": "boolean"},
					"hasTables":  map[string]any{"type": "boolean"},
					"hasLists":   map[string]any{"type": "boolean"},
				},
			},
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"extractedAt": map[string]any{"type": "string"},
					"confidence":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					"totalFields": map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	}
}
