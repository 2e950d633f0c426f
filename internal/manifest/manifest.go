// Package manifest validates and inspects the delivery manifests drivers
// upload before they are handed to the backend.
package manifest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const InvalidFormatMessage = "Invalid file format. Please upload a .csv or Excel file."

// MaxSize caps what the upload form accepts.
const MaxSize = 20 << 20

var ErrInvalidFormat = errors.New(InvalidFormatMessage)

var (
	ErrEmpty      = errors.New("manifest has no rows")
	ErrHeaderOnly = errors.New("manifest has a header row but no data rows")
)

var acceptedMIME = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

var acceptedExt = map[string]bool{".csv": true, ".xlsx": true, ".xls": true}

// Validate accepts a file when either its MIME type or its extension is one
// of the supported spreadsheet formats.
func Validate(filename, mimeType string) error {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if acceptedMIME[mt] {
		return nil
	}
	if acceptedExt[strings.ToLower(filepath.Ext(filename))] {
		return nil
	}
	return ErrInvalidFormat
}

// Summary describes a parsed manifest.
type Summary struct {
	Filename string
	Format   string
	Header   []string
	Rows     int
}

// Inspect parses the manifest and reports its header and data row count.
// The format is picked from the extension, falling back to the MIME type.
func Inspect(r io.Reader, filename, mimeType string) (Summary, error) {
	if err := Validate(filename, mimeType); err != nil {
		return Summary{}, err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Summary{}, fmt.Errorf("read manifest: %w", err)
	}
	if len(data) > MaxSize {
		return Summary{}, fmt.Errorf("manifest is larger than %d MB", MaxSize>>20)
	}

	format := formatOf(filename, mimeType)
	var rows [][]string
	switch format {
	case "csv":
		rows, err = readCSV(data)
	case "xls":
		rows, err = readXLS(data)
	default:
		rows, err = readXLSX(data)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("parse %s manifest: %w", format, err)
	}

	rows = dropBlank(rows)
	if len(rows) == 0 {
		return Summary{}, ErrEmpty
	}
	if len(rows) == 1 {
		return Summary{}, ErrHeaderOnly
	}
	header := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		header = append(header, strings.TrimSpace(h))
	}
	return Summary{Filename: filename, Format: format, Header: header, Rows: len(rows) - 1}, nil
}

func formatOf(filename, mimeType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv"
	case ".xls":
		return "xls"
	case ".xlsx":
		return "xlsx"
	}
	mt := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mt, "text/csv"):
		return "csv"
	case strings.HasPrefix(mt, "application/vnd.ms-excel"):
		return "xls"
	default:
		return "xlsx"
	}
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.New("no worksheet found")
	}
	return workbook.ReadAllCells(100000), nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no worksheet found")
	}
	return file.GetRows(sheetName)
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
