package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/envutil"
	"github.com/cmjl/deliverydesk/internal/report"
)

// apiFlags are shared by the commands that talk to the backend.
type apiFlags struct {
	baseURL *string
	token   *string
	driver  *int64
	date    *string
}

func addAPIFlags(fs *flag.FlagSet) apiFlags {
	return apiFlags{
		baseURL: fs.String("api-base-url", envutil.OrDefault("API_BASE_URL", "http://localhost:8080"), "backend base URL"),
		token:   fs.String("token", os.Getenv("DELIVERYDESK_TOKEN"), "bearer access token"),
		driver:  fs.Int64("driver", 0, "driver id"),
		date:    fs.String("date", today(), "report date (YYYY-MM-DD)"),
	}
}

func (f apiFlags) check() error {
	if strings.TrimSpace(*f.token) == "" {
		return errors.New("--token is required")
	}
	if *f.driver <= 0 {
		return errors.New("--driver is required")
	}
	return nil
}

func (f apiFlags) client() *backend.Client {
	return backend.New(*f.baseURL, envutil.Duration("API_TIMEOUT", 8*time.Second))
}

func runReport(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("report")
	api := addAPIFlags(fs)
	status := fs.String("status", "all", "status filter: all, match or mismatch")
	query := fs.String("query", "", "free text search")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", report.DefaultLimit, "rows per page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := api.check(); err != nil {
		return err
	}

	client := api.client()
	engine := report.NewEngine(client.ReportFetcher(*api.token))
	res, err := engine.Query(ctx, report.Criteria{
		DriverID: *api.driver,
		Date:     strings.TrimSpace(*api.date),
		Filter:   report.Filter{Status: report.ParseStatusFilter(*status), Query: *query},
		Page:     *page,
		Limit:    *limit,
	})
	if err != nil {
		return apiError(err, "fetch report")
	}
	log.Debug().Int64("calls", client.Calls()).Bool("fetched_all", res.FetchedAll).Msg("report query done")
	return printReport(out, res)
}

func printReport(out io.Writer, res report.Result) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BARCODE\tADDRESS\tLAST GPS\tEXPECTED\tDISTANCE (KM)\tSTATUS")
	for _, r := range res.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			dash(r.Barcode), dash(r.Address), dash(r.LastGPSLocation), dash(r.ExpectedLocation), dash(r.Distance()), r.Badge())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Total == 0 {
		_, err := fmt.Fprintln(out, "no deliveries found")
		return err
	}
	_, err := fmt.Fprintf(out, "page %d of %d, %d rows  %s\n", res.Page, res.TotalPages, res.Total, windowLine(res))
	return err
}

// windowLine renders the page strip, e.g. "1 … 3 4 5 [6] 7 8 9 … 20".
func windowLine(res report.Result) string {
	win := report.PageWindow(res.Page, res.TotalPages, report.DefaultWindowWidth)
	var parts []string
	if win.ShowFirst {
		parts = append(parts, "1")
	}
	if win.LeadingGap {
		parts = append(parts, "…")
	}
	for _, p := range win.Pages {
		if p == win.Current {
			parts = append(parts, fmt.Sprintf("[%d]", p))
			continue
		}
		parts = append(parts, fmt.Sprint(p))
	}
	if win.TrailingGap {
		parts = append(parts, "…")
	}
	if win.ShowLast {
		parts = append(parts, fmt.Sprint(win.TotalPages))
	}
	return strings.Join(parts, " ")
}

// apiError prefers the backend's own message and keeps other errors
// wrapped.
func apiError(err error, action string) error {
	if msg := backend.Message(err, ""); msg != "" {
		return fmt.Errorf("%s: %s", action, msg)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func runExport(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("export")
	api := addAPIFlags(fs)
	format := fs.String("format", "csv", "csv (backend export) or xlsx")
	status := fs.String("status", "all", "status filter for xlsx exports")
	query := fs.String("query", "", "free text filter for xlsx exports")
	outPath := fs.String("out", "", "output file (default uploads-report_<driver>_<date>.<format>)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := api.check(); err != nil {
		return err
	}
	ext := strings.ToLower(strings.TrimSpace(*format))
	if ext != "csv" && ext != "xlsx" {
		return fmt.Errorf("%w: export: unknown format %q", ErrUsage, *format)
	}
	date := strings.TrimSpace(*api.date)
	path := *outPath
	if path == "" {
		path = report.ExportFilename(*api.driver, date, ext)
	}

	client := api.client()
	var body []byte
	switch ext {
	case "csv":
		raw, _, err := client.ExportReport(ctx, *api.token, *api.driver, date)
		if err != nil {
			return apiError(err, "export report")
		}
		body = raw
	case "xlsx":
		rows, err := report.NewEngine(client.ReportFetcher(*api.token)).FetchAll(ctx, *api.driver, date)
		if err != nil {
			return apiError(err, "export report")
		}
		rows = report.Filter{Status: report.ParseStatusFilter(*status), Query: *query}.Apply(rows)
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, rows); err != nil {
			return err
		}
		body = buf.Bytes()
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, len(body))
	return nil
}
