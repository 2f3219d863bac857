// Package tabular decodes uploaded spreadsheets (CSV or XLSX) into a header
// row plus string records.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tealeg/xlsx/v3"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrNoDataRows      = errors.New("file contains no data rows")
	ErrInvalidEncoding = errors.New("file is not valid UTF-8 text")
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a parsed upload. Records never contain the header row and every
// record has exactly len(Headers) cells. Lines[i] is the 1-based line (or
// sheet row) Records[i] started on, so skipped blank rows still count.
type Table struct {
	Headers []string
	Records [][]string
	Lines   []int
}

// IsXLSX reports whether the upload should be decoded as a workbook.
func IsXLSX(filename, mimeType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(mimeType), xlsxMime)
}

// Parse decodes content according to the filename extension or MIME type.
func Parse(filename, mimeType string, content []byte) (*Table, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}
	if IsXLSX(filename, mimeType) {
		return ParseXLSX(content)
	}
	return ParseCSV(content)
}

// ParseCSV reads delimited text leniently: cells are trimmed, rows may be
// ragged, bare quotes are tolerated and blank lines are skipped.
func ParseCSV(content []byte) (*Table, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		raw   [][]string
		lines []int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		raw = append(raw, record)
		lines = append(lines, line)
	}

	return build(raw, lines)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(content []byte) (*Table, error) {
	file, err := xlsx.OpenBinary(content)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := file.Sheets[0]
	raw := make([][]string, 0, sheet.MaxRow)
	lines := make([]int, 0, sheet.MaxRow)
	for r := 0; r < sheet.MaxRow; r++ {
		record := make([]string, sheet.MaxCol)
		for c := 0; c < sheet.MaxCol; c++ {
			cell, err := sheet.Cell(r, c)
			if err != nil {
				continue
			}
			record[c] = cell.String()
		}
		raw = append(raw, record)
		lines = append(lines, r+1)
	}

	return build(raw, lines)
}

func build(raw [][]string, lines []int) (*Table, error) {
	raw, lines = dropBlank(raw, lines)
	if len(raw) == 0 {
		return nil, ErrEmptyFile
	}

	headers := trimAll(raw[0])
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return nil, ErrEmptyFile
	}
	if len(raw) == 1 {
		return nil, ErrNoDataRows
	}

	records := make([][]string, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		cells := make([]string, len(headers))
		for i := range headers {
			if i < len(rec) {
				cells[i] = strings.TrimSpace(rec[i])
			}
		}
		records = append(records, cells)
	}

	return &Table{Headers: headers, Records: records, Lines: lines[1:]}, nil
}

func dropBlank(raw [][]string, lines []int) ([][]string, []int) {
	out := raw[:0]
	kept := lines[:0]
	for i, rec := range raw {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				kept = append(kept, lines[i])
				break
			}
		}
	}
	return out, kept
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
