package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

func (r *Renderer) renderPDF(doc *domain.Document, layout []renderSection) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.OriginalFileName, true)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.SetTextColor(30, 64, 120)
		pdf.CellFormat(0, 9, r.branding.CompanyName, "", 1, "L", false, 0, "")
		if r.branding.Tagline != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(110, 110, 110)
			pdf.CellFormat(0, 5, r.branding.Tagline, "", 1, "L", false, 0, "")
		}
		pdf.SetDrawColor(30, 64, 120)
		pdf.SetLineWidth(0.4)
		y := pdf.GetY() + 1
		left, _, right, _ := pdf.GetMargins()
		pageW, _ := pdf.GetPageSize()
		pdf.Line(left, y, pageW-right, y)
		pdf.Ln(5)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(130, 130, 130)
		footer := fmt.Sprintf("Page %d", pdf.PageNo())
		if r.branding.FooterNote != "" {
			footer = r.branding.FooterNote + "  |  " + footer
		}
		pdf.CellFormat(0, 8, footer, "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)

	for _, section := range layout {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(30, 64, 120)
		pdf.CellFormat(0, 8, section.Title, "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(1)

		for _, f := range section.Fields {
			writePDFField(pdf, f)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "render_pdf", err)
	}
	return buf.Bytes(), nil
}

func writePDFField(pdf *fpdf.Fpdf, f domain.Field) {
	switch f.Type {
	case domain.FieldHeading:
		pdf.SetFont("Helvetica", "B", headingSize(headingLevel(f)))
		pdf.MultiCell(0, 7, scalarString(f.Value.Scalar), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
	case domain.FieldParagraph:
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, scalarString(f.Value.Scalar), "", "L", false)
		pdf.Ln(1)
	case domain.FieldTable:
		writePDFTable(pdf, f.Value.Grid)
	default:
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(55, 6, f.Label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, formatValue(f), "", "L", false)
	}
}

func writePDFTable(pdf *fpdf.Fpdf, grid [][]string) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return
	}
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	colW := (pageW - left - right) / float64(len(grid[0]))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(226, 232, 240)
	for _, cell := range grid[0] {
		pdf.CellFormat(colW, 7, cell, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range grid[1:] {
		for i := 0; i < len(grid[0]); i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(colW, 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}
