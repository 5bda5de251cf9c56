package render

import (
	"github.com/xuri/excelize/v2"

	"github.com/pzhurov/papersmith/internal/core/domain"
)

// renderXLSX writes one worksheet with a row per scalar field and inline
// grids for table fields.
func (r *Renderer) renderXLSX(doc *domain.Document, layout []renderSection) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "1E4078"},
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "render_xlsx", err)
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "1E4078"},
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "render_xlsx", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "render_xlsx", err)
	}

	f.SetColWidth(sheet, "A", "A", 34)
	f.SetColWidth(sheet, "B", "F", 28)

	row := 1
	f.SetCellValue(sheet, cellName(1, row), r.branding.CompanyName)
	f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), titleStyle)
	row += 2

	for _, section := range layout {
		f.SetCellValue(sheet, cellName(1, row), section.Title)
		f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), sectionStyle)
		row++

		for _, field := range section.Fields {
			if field.Type == domain.FieldTable {
				row = writeXLSXTable(f, sheet, headerStyle, row, field.Value.Grid)
				continue
			}
			f.SetCellValue(sheet, cellName(1, row), field.Label)
			f.SetCellValue(sheet, cellName(2, row), formatValue(field))
			row++
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "render_xlsx", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXTable(f *excelize.File, sheet string, headerStyle, row int, grid [][]string) int {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return row
	}
	for col, cell := range grid[0] {
		f.SetCellValue(sheet, cellName(col+1, row), cell)
	}
	f.SetCellStyle(sheet, cellName(1, row), cellName(len(grid[0]), row), headerStyle)
	row++

	for _, dataRow := range grid[1:] {
		for col := 0; col < len(grid[0]); col++ {
			cell := ""
			if col < len(dataRow) {
				cell = dataRow[col]
			}
			f.SetCellValue(sheet, cellName(col+1, row), cell)
		}
		row++
	}
	return row
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}
