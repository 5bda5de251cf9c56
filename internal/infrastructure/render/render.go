// Package render turns a processed document into company-branded output
// bytes. Rendering is deterministic and never mutates the input document.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	notSpecified = "Not specified"
)

// Branding is the static company identity stamped on every output.
type Branding struct {
	CompanyName string
	Tagline     string
	FooterNote  string
}

type Renderer struct {
	branding Branding
}

func NewRenderer(branding Branding) *Renderer {
	if branding.CompanyName == "" {
		branding.CompanyName = "Papersmith"
	}
	return &Renderer{branding: branding}
}

func (r *Renderer) Render(doc *domain.Document, format string) ([]byte, string, error) {
	if doc == nil || doc.ExtractedData == nil {
		return nil, "", domain.WrapError(domain.ErrGeneration, "render",
			fmt.Errorf("document has no extracted data"))
	}

	layout, err := buildLayout(doc.ExtractedData)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "pdf":
		content, err := r.renderPDF(doc, layout)
		return content, MIMEPDF, err
	case "docx":
		content, err := r.renderDOCX(doc, layout)
		return content, MIMEDOCX, err
	case "xlsx":
		content, err := r.renderXLSX(doc, layout)
		return content, MIMEXLSX, err
	default:
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "render",
			fmt.Errorf("unsupported format %q", format))
	}
}

type renderSection struct {
	Title  string
	Fields []domain.Field
}

// buildLayout groups fields by section name under the selected sections in
// section order; fields whose section matches no detected section render in
// trailing groups so nothing is dropped. Fields inside a group follow
// layout.order with stable ties.
func buildLayout(data *domain.ExtractedData) ([]renderSection, error) {
	for _, f := range data.Fields {
		if f.Type == domain.FieldTable && !f.Value.IsTable() {
			return nil, domain.WrapError(domain.ErrGeneration, "layout",
				fmt.Errorf("table field %s has non-array value", f.ID))
		}
	}

	sections := make([]domain.Section, len(data.DetectedSections))
	copy(sections, data.DetectedSections)
	domain.SortSections(sections)

	claimed := make(map[string]bool, len(sections))
	var out []renderSection
	for _, section := range sections {
		if !section.Selected {
			claimed[section.Title] = true
			continue
		}
		claimed[section.Title] = true
		out = append(out, renderSection{
			Title:  section.Title,
			Fields: data.FieldsInSection(section.Title),
		})
	}

	var leftoverNames []string
	for _, f := range data.Fields {
		if !claimed[f.Section] {
			claimed[f.Section] = true
			leftoverNames = append(leftoverNames, f.Section)
		}
	}
	for _, name := range leftoverNames {
		out = append(out, renderSection{
			Title:  name,
			Fields: data.FieldsInSection(name),
		})
	}
	return out, nil
}

// formatValue renders a scalar field value for display.
func formatValue(f domain.Field) string {
	if f.Value.IsEmpty() {
		return notSpecified
	}
	switch f.Type {
	case domain.FieldBoolean:
		if b, ok := f.Value.Scalar.(bool); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	case domain.FieldDate:
		if s, ok := f.Value.Scalar.(string); ok {
			if formatted, ok := formatDate(s); ok {
				return formatted
			}
		}
	case domain.FieldNumber:
		if n, ok := f.Value.Scalar.(float64); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return scalarString(f.Value.Scalar)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return notSpecified
	default:
		return fmt.Sprintf("%v", t)
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"02.01.2006",
}

func formatDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("January 2, 2006"), true
		}
	}
	return "", false
}

// headingSize scales font size inversely with heading level 1..6.
func headingSize(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return float64(20 - 2*level)
}

func headingLevel(f domain.Field) int {
	if f.Layout == nil || f.Layout.Level == 0 {
		return 2
	}
	return f.Layout.Level
}
