package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cmjl/deliverydesk/internal/report"
)

type rawReportRow struct {
	Barcode        text `json:"barcode"`
	Address        text `json:"address"`
	GPSLocation    text `json:"gpsLocation"`
	ExpectedLat    text `json:"expectedLat"`
	ExpectedLng    text `json:"expectedLng"`
	DistanceKm     text `json:"distanceKm"`
	Status         text `json:"status"`
	GoogleMapsLink text `json:"googleMapsLink"`
	GoogleMapLink  text `json:"googleMapLink"`
	MapsURL        text `json:"mapsUrl"`
	ProofImage     text `json:"proofImage"`
	ProofURL       text `json:"proofUrl"`
	Proof          text `json:"proof"`
}

func (r rawReportRow) row() report.Row {
	return report.Row{
		Barcode:          string(r.Barcode),
		Address:          string(r.Address),
		LastGPSLocation:  string(r.GPSLocation),
		ExpectedLocation: report.ExpectedFrom(string(r.ExpectedLat), string(r.ExpectedLng)),
		DistanceKm:       string(r.DistanceKm),
		Status:           string(r.Status),
		MapsURL:          firstNonEmpty(r.GoogleMapsLink, r.GoogleMapLink, r.MapsURL),
		ProofImage:       firstNonEmpty(r.ProofImage, r.ProofURL, r.Proof),
	}
}

type reportEnvelope struct {
	Data []rawReportRow `json:"data"`
	Meta struct {
		Total *int `json:"total"`
	} `json:"meta"`
	Total *int `json:"total"`
}

// decodeReportPage accepts either a bare array of rows or an object with
// the rows under "data" and the total under "meta.total" or "total".
func decodeReportPage(raw []byte) (report.Page, error) {
	var rawRows []rawReportRow
	var page report.Page

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rawRows); err != nil {
			return report.Page{}, fmt.Errorf("decode report rows: %w", err)
		}
	} else {
		var env reportEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return report.Page{}, fmt.Errorf("decode report: %w", err)
		}
		rawRows = env.Data
		switch {
		case env.Meta.Total != nil:
			page.Total, page.HasTotal = *env.Meta.Total, true
		case env.Total != nil:
			page.Total, page.HasTotal = *env.Total, true
		}
	}

	page.Rows = make([]report.Row, 0, len(rawRows))
	for _, r := range rawRows {
		page.Rows = append(page.Rows, r.row())
	}
	return page, nil
}

func reportQuery(driverID int64, date string) url.Values {
	q := url.Values{}
	q.Set("driverId", strconv.FormatInt(driverID, 10))
	q.Set("date", date)
	return q
}

// FetchReport loads one page of a driver's report.
func (c *Client) FetchReport(ctx context.Context, token string, req report.PageRequest) (report.Page, error) {
	q := reportQuery(req.DriverID, req.Date)
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("limit", strconv.Itoa(req.Limit))

	resp, err := c.do(ctx, http.MethodGet, "/report?"+q.Encode(), token, nil, "")
	if err != nil {
		return report.Page{}, err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return report.Page{}, decodeError(resp, fmt.Sprintf("Failed to fetch report (%d)", resp.StatusCode))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return report.Page{}, fmt.Errorf("read report: %w", err)
	}
	return decodeReportPage(raw)
}

// ReportFetcher binds the client to one session's bearer token.
func (c *Client) ReportFetcher(token string) report.Fetcher {
	return report.FetcherFunc(func(ctx context.Context, req report.PageRequest) (report.Page, error) {
		return c.FetchReport(ctx, token, req)
	})
}

// ExportReport downloads the server-generated CSV for a driver and date.
// The body is returned whole; callers write it out and drop it.
func (c *Client) ExportReport(ctx context.Context, token string, driverID int64, date string) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/report/export?"+reportQuery(driverID, date).Encode(), token, nil, "")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return nil, "", decodeError(resp, fmt.Sprintf("Export failed (%d)", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/csv; charset=utf-8"
	}
	return body, contentType, nil
}
