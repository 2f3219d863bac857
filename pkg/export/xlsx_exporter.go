package export

import (
	"bytes"
	"fmt"

	"github.com/tealeg/xlsx/v3"
)

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct {
	sheetName string
}

// NewXLSXExporter constructs an XLSX exporter writing to sheetName.
func NewXLSXExporter(sheetName string) *XLSXExporter {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &XLSXExporter{sheetName: sheetName}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes a bold header row followed by the dataset rows.
func (e *XLSXExporter) Render(data Dataset, _ string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(e.sheetName)
	if err != nil {
		return nil, fmt.Errorf("add xlsx sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, header := range data.Headers {
		cell := headerRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
	}

	for _, record := range data.Records() {
		row := sheet.AddRow()
		for _, value := range record {
			row.AddCell().Value = value
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
