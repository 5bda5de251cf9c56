package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

// renderDOCX writes a minimal WordprocessingML package: content types, the
// package relationships and a single word/document.xml part.
func (r *Renderer) renderDOCX(doc *domain.Document, layout []renderSection) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxPackageRels},
		{"word/document.xml", r.buildDocumentXML(layout)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, domain.WrapError(domain.ErrGeneration, "render_docx", err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, domain.WrapError(domain.ErrGeneration, "render_docx", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "render_docx", err)
	}
	return buf.Bytes(), nil
}

const docxContentTypes = xml.Header +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const docxPackageRels = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

func (r *Renderer) buildDocumentXML(layout []renderSection) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writeParagraph(&b, r.branding.CompanyName, paraStyle{bold: true, sizeHalfPt: 36, color: "1E4078"})
	if r.branding.Tagline != "" {
		writeParagraph(&b, r.branding.Tagline, paraStyle{italic: true, sizeHalfPt: 18, color: "6E6E6E"})
	}
	writeParagraph(&b, "", paraStyle{})

	for _, section := range layout {
		writeParagraph(&b, section.Title, paraStyle{bold: true, sizeHalfPt: 28, color: "1E4078"})
		for _, f := range section.Fields {
			writeDOCXField(&b, f)
		}
		writeParagraph(&b, "", paraStyle{})
	}

	if r.branding.FooterNote != "" {
		writeParagraph(&b, r.branding.FooterNote, paraStyle{italic: true, sizeHalfPt: 16, color: "828282"})
	}

	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func writeDOCXField(b *strings.Builder, f domain.Field) {
	switch f.Type {
	case domain.FieldHeading:
		half := int(headingSize(headingLevel(f))) * 2
		writeParagraph(b, scalarString(f.Value.Scalar), paraStyle{bold: true, sizeHalfPt: half})
	case domain.FieldParagraph:
		writeParagraph(b, scalarString(f.Value.Scalar), paraStyle{sizeHalfPt: 20})
	case domain.FieldTable:
		writeDOCXTable(b, f.Value.Grid)
	default:
		writeLabelValue(b, f.Label, formatValue(f))
	}
}

type paraStyle struct {
	bold       bool
	italic     bool
	sizeHalfPt int
	color      string
}

func writeParagraph(b *strings.Builder, text string, style paraStyle) {
	b.WriteString(`<w:p><w:r>`)
	writeRunProps(b, style)
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(text))
	b.WriteString(`</w:r></w:p>`)
}

func writeLabelValue(b *strings.Builder, label, value string) {
	b.WriteString(`<w:p><w:r>`)
	writeRunProps(b, paraStyle{bold: true, sizeHalfPt: 20})
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s: </w:t>`, escapeXML(label))
	b.WriteString(`</w:r><w:r>`)
	writeRunProps(b, paraStyle{sizeHalfPt: 20})
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(value))
	b.WriteString(`</w:r></w:p>`)
}

func writeRunProps(b *strings.Builder, style paraStyle) {
	b.WriteString(`<w:rPr>`)
	if style.bold {
		b.WriteString(`<w:b/>`)
	}
	if style.italic {
		b.WriteString(`<w:i/>`)
	}
	if style.color != "" {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, style.color)
	}
	if style.sizeHalfPt > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/>`, style.sizeHalfPt)
	}
	b.WriteString(`</w:rPr>`)
}

func writeDOCXTable(b *strings.Builder, grid [][]string) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return
	}
	b.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4"/><w:bottom w:val="single" w:sz="4"/>` +
		`<w:left w:val="single" w:sz="4"/><w:right w:val="single" w:sz="4"/>` +
		`<w:insideH w:val="single" w:sz="4"/><w:insideV w:val="single" w:sz="4"/>` +
		`</w:tblBorders></w:tblPr>`)

	for rowIdx, row := range grid {
		b.WriteString(`<w:tr>`)
		for col := 0; col < len(grid[0]); col++ {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			b.WriteString(`<w:tc><w:tcPr>`)
			if rowIdx == 0 {
				b.WriteString(`<w:shd w:val="clear" w:fill="E2E8F0"/>`)
			}
			b.WriteString(`</w:tcPr><w:p><w:r>`)
			writeRunProps(b, paraStyle{bold: rowIdx == 0, sizeHalfPt: 18})
			fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escapeXML(cell))
			b.WriteString(`</w:r></w:p></w:tc>`)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}
