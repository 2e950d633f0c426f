package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "uploads-report_42_2024-01-15.csv", ExportFilename(42, "2024-01-15", "csv"))
	assert.Equal(t, "uploads-report_42_2024-01-15.xlsx", ExportFilename(42, "2024-01-15", ".xlsx"))
	assert.Equal(t, "uploads-report_42_2024-01-15.csv", ExportFilename(42, "2024-01-15", ""))
}

func TestWriteXLSX(t *testing.T) {
	rows := []Row{
		{Barcode: "BC1", Address: "A St", DistanceKm: "1.5", Status: "matched"},
		{Barcode: "BC2", Address: "B St", Status: "off route"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Barcode", got[0][0])
	assert.Equal(t, []string{"BC1", "A St", "", "", "1.5", "Match"}, got[1])
	assert.Equal(t, "Mismatch", got[2][5])
}
