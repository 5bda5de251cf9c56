package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type FieldType string

const (
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldDate      FieldType = "date"
	FieldEmail     FieldType = "email"
	FieldPhone     FieldType = "phone"
	FieldTextarea  FieldType = "textarea"
	FieldSelect    FieldType = "select"
	FieldBoolean   FieldType = "boolean"
	FieldTable     FieldType = "table"
	FieldHeading   FieldType = "heading"
	FieldParagraph FieldType = "paragraph"
)

type SectionType string

const (
	SectionTable      SectionType = "table"
	SectionHeading    SectionType = "heading"
	SectionFieldGroup SectionType = "field_group"
	SectionList       SectionType = "list"
	SectionOther      SectionType = "other"
)

// FieldValue holds either a JSON scalar (string, number, boolean, null) or a
// two-dimensional string grid for table fields. Row 0 of a grid is the header.
type FieldValue struct {
	Scalar any
	Grid   [][]string
	isGrid bool
}

func ScalarValue(v any) FieldValue {
	return FieldValue{Scalar: v}
}

func GridValue(rows [][]string) FieldValue {
	return FieldValue{Grid: rows, isGrid: true}
}

func (v FieldValue) IsTable() bool { return v.isGrid }

func (v FieldValue) IsEmpty() bool {
	if v.isGrid {
		return len(v.Grid) == 0
	}
	if v.Scalar == nil {
		return true
	}
	s, ok := v.Scalar.(string)
	return ok && s == ""
}

// HeaderRow returns row 0 of a table value, or nil for non-tables.
func (v FieldValue) HeaderRow() []string {
	if !v.isGrid || len(v.Grid) == 0 {
		return nil
	}
	return v.Grid[0]
}

// DataRows returns every row below the header.
func (v FieldValue) DataRows() [][]string {
	if !v.isGrid || len(v.Grid) < 2 {
		return nil
	}
	return v.Grid[1:]
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.isGrid {
		if v.Grid == nil {
			return json.Marshal([][]string{})
		}
		return json.Marshal(v.Grid)
	}
	return json.Marshal(v.Scalar)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var grid [][]string
	if err := json.Unmarshal(data, &grid); err == nil && len(data) > 0 && data[0] == '[' {
		v.Grid = grid
		v.Scalar = nil
		v.isGrid = true
		return nil
	}
	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	switch scalar.(type) {
	case string, float64, bool, nil:
		v.Scalar = scalar
		v.Grid = nil
		v.isGrid = false
		return nil
	default:
		return fmt.Errorf("field value: unsupported shape %T", scalar)
	}
}

type FieldLayout struct {
	StructureType string `json:"structureType,omitempty"`
	Level         int    `json:"level,omitempty"`
	Columns       int    `json:"columns,omitempty"`
	Rows          int    `json:"rows,omitempty"`
	Order         int    `json:"order"`
}

type Field struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Value    FieldValue   `json:"value"`
	Type     FieldType    `json:"type"`
	Section  string       `json:"section"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	Layout   *FieldLayout `json:"layout,omitempty"`
}

// Order returns the layout order, treating an absent layout as 0.
func (f Field) Order() int {
	if f.Layout == nil {
		return 0
	}
	return f.Layout.Order
}

// SetTableCell replaces one cell of a table field. Out-of-range coordinates
// and non-table fields are rejected.
func (f *Field) SetTableCell(row, col int, value string) error {
	if !f.Value.IsTable() {
		return WrapError(ErrInvalidInput, "set table cell", fmt.Errorf("field %s is not a table", f.ID))
	}
	if row < 0 || row >= len(f.Value.Grid) {
		return WrapError(ErrInvalidInput, "set table cell", fmt.Errorf("row %d out of range", row))
	}
	if col < 0 || col >= len(f.Value.Grid[row]) {
		return WrapError(ErrInvalidInput, "set table cell", fmt.Errorf("column %d out of range", col))
	}
	f.Value.Grid[row][col] = value
	return nil
}

// AppendTableRow adds an empty data row sized to the header row.
func (f *Field) AppendTableRow() error {
	if !f.Value.IsTable() {
		return WrapError(ErrInvalidInput, "append table row", fmt.Errorf("field %s is not a table", f.ID))
	}
	width := len(f.Value.HeaderRow())
	f.Value.Grid = append(f.Value.Grid, make([]string, width))
	return nil
}

// RemoveTableRow deletes one data row. Removing the header row is a no-op, and
// the last remaining data row is never removed.
func (f *Field) RemoveTableRow(row int) error {
	if !f.Value.IsTable() {
		return WrapError(ErrInvalidInput, "remove table row", fmt.Errorf("field %s is not a table", f.ID))
	}
	if row <= 0 || row >= len(f.Value.Grid) {
		return nil
	}
	if len(f.Value.Grid) <= 2 {
		return nil
	}
	f.Value.Grid = append(f.Value.Grid[:row], f.Value.Grid[row+1:]...)
	return nil
}

type Section struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Content  string      `json:"content,omitempty"`
	Type     SectionType `json:"type"`
	Preview  string      `json:"preview,omitempty"`
	Fields   []Field     `json:"fields"`
	Selected bool        `json:"selected"`
	Order    int         `json:"order"`
}

type Structure struct {
	HasHeaders bool `json:"hasHeaders"`
	HasTables  bool `json:"hasTables"`
	HasLists   bool `json:"hasLists"`
}

type Metadata struct {
	ExtractedAt time.Time `json:"extractedAt"`
	Confidence  float64   `json:"confidence"`
	TotalFields int       `json:"totalFields"`
}

type ExtractedData struct {
	DocumentType     string    `json:"documentType"`
	DetectedSections []Section `json:"detectedSections"`
	Fields           []Field   `json:"fields"`
	Structure        Structure `json:"structure"`
	Metadata         Metadata  `json:"metadata"`
}

// FieldsInSection returns the fields whose section name matches, sorted by
// layout order with original position as the tie-break.
func (d *ExtractedData) FieldsInSection(name string) []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Section == name {
			out = append(out, f)
		}
	}
	SortFieldsByOrder(out)
	return out
}

// FieldByID returns a pointer into Fields, or nil when absent.
func (d *ExtractedData) FieldByID(id string) *Field {
	for i := range d.Fields {
		if d.Fields[i].ID == id {
			return &d.Fields[i]
		}
	}
	return nil
}

// SortFieldsByOrder sorts in place by layout.order ascending. The sort is
// stable so equal orders keep their original positions.
func SortFieldsByOrder(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Order() < fields[j].Order()
	})
}

// SortSections sorts in place by section order ascending, stable.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})
}
