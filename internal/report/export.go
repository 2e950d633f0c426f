package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// ExportFilename names a downloaded report after the driver and date, e.g.
// uploads-report_42_2024-01-15.csv.
func ExportFilename(driverID int64, date, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "csv"
	}
	return fmt.Sprintf("uploads-report_%d_%s.%s", driverID, strings.TrimSpace(date), ext)
}

var exportHeader = []any{"Barcode", "Address", "Last GPS Location", "Expected Location", "Distance (km)", "Status", "Maps URL"}

// WriteXLSX writes rows as a single-sheet workbook in the order given.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Barcode, r.Address, r.LastGPSLocation, r.ExpectedLocation, r.Distance(), r.Badge(), r.MapsURL}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
