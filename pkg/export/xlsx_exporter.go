package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	sheetName string
}

// NewXLSXExporter constructs an XLSX exporter writing to the named sheet.
func NewXLSXExporter(sheetName string) *XLSXExporter {
	if sheetName == "" {
		sheetName = "Submissions"
	}
	return &XLSXExporter{sheetName: sheetName}
}

// Render writes headers on the first row and one row per record.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), e.sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(e.sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", header, err)
		}
	}
	if err := f.SetPanes(e.sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	for i, row := range data.Rows {
		for col, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(e.sheetName, cell, row[header]); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
