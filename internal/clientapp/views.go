package clientapp

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/report"
	"github.com/cmjl/deliverydesk/internal/session"
)

type pageData struct {
	Title   string
	Nav     string
	Error   string
	Message string
	CSRF    string
	User    session.Session
	IsAdmin bool

	// Login, register and forgot password.
	Role        string
	Form        map[string]string
	FieldErrors map[string]string
	Step        string
	UserID      int64
	MaskedEmail string
	ResetToken  string

	// Upload.
	DriverOptions  []optionView
	OwnDriverID    int64
	MaxUploadMB    int
	UploadedRows   int
	UploadedHeader []string

	Dashboard *dashboardView

	// Drivers admin.
	Drivers  []backend.Driver
	Editing  *driverFormView
	Deleting *backend.Driver
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type rowView struct {
	Index            int
	Barcode          string
	Address          string
	LastGPSLocation  string
	ExpectedLocation string
	Distance         string
	Status           string
	Badge            string
	IsMatch          bool
	HasMap           bool
	ProofImage       string
}

type pageLinkView struct {
	Number  int
	URL     string
	Current bool
}

type dashboardView struct {
	Drivers    []optionView
	Statuses   []optionView
	Limits     []optionView
	Date       string
	Query      string
	DriverID   int64
	DriverName string
	HasDriver  bool
	Queried    bool
	FetchedAll bool

	Rows       []rowView
	Total      int
	Page       int
	TotalPages int
	RangeFrom  int
	RangeTo    int

	Pages       []pageLinkView
	FirstURL    string
	LastURL     string
	LeadingGap  bool
	TrailingGap bool
	PrevURL     string
	NextURL     string

	ExportURL       string
	ExportXLSXURL   string
	ClearFiltersURL string
	ClearURL        string
}

type driverFormView struct {
	Create bool
	PathID string
	Values map[string]string
	Errors map[string]string
}

var templateFuncs = template.FuncMap{
	"field": func(m map[string]string, key string) string {
		if m == nil {
			return ""
		}
		return m[key]
	},
}

func newRowView(i int, r report.Row) rowView {
	return rowView{
		Index:            i,
		Barcode:          r.Barcode,
		Address:          r.Address,
		LastGPSLocation:  r.LastGPSLocation,
		ExpectedLocation: r.ExpectedLocation,
		Distance:         r.Distance(),
		Status:           r.Status,
		Badge:            r.Badge(),
		IsMatch:          r.IsMatch(),
		HasMap:           r.LastGPSLocation != "" || r.Address != "" || r.MapsURL != "",
		ProofImage:       r.ProofImage,
	}
}

// dashboardQuery is the URL form of a report State.
func dashboardQuery(st report.State, page int) url.Values {
	q := url.Values{}
	if st.DriverID > 0 {
		q.Set("driver", strconv.FormatInt(st.DriverID, 10))
	}
	q.Set("date", st.Date)
	if st.Status != report.StatusAll {
		q.Set("status", string(st.Status))
	}
	if st.Query != "" {
		q.Set("q", st.Query)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	q.Set("limit", strconv.Itoa(st.Limit))
	return q
}

func dashboardURL(st report.State, page int) string {
	return "/dashboard?" + dashboardQuery(st, page).Encode()
}

func buildDashboardView(st report.State, res report.Result, options []report.DriverOption, queried bool) *dashboardView {
	v := &dashboardView{
		Date:      st.Date,
		Query:     st.Query,
		DriverID:  st.DriverID,
		HasDriver: st.DriverID > 0,
		Queried:   queried,
	}

	for _, o := range options {
		selected := o.ID == st.DriverID
		if selected {
			v.DriverName = o.Name()
		}
		v.Drivers = append(v.Drivers, optionView{Value: strconv.FormatInt(o.ID, 10), Label: o.Label, Selected: selected})
	}
	for _, s := range []struct {
		value report.StatusFilter
		label string
	}{{report.StatusAll, "All"}, {report.StatusMatch, "Match"}, {report.StatusMismatch, "Mismatch"}} {
		v.Statuses = append(v.Statuses, optionView{Value: string(s.value), Label: s.label, Selected: st.Status == s.value})
	}
	for _, n := range report.LimitPresets {
		v.Limits = append(v.Limits, optionView{Value: strconv.Itoa(n), Label: strconv.Itoa(n), Selected: st.Limit == n})
	}

	v.ClearFiltersURL = "/dashboard?clear_filters=1"
	v.ClearURL = "/dashboard?" + url.Values{"clear": {"1"}, "date": {st.Date}, "limit": {strconv.Itoa(st.Limit)}}.Encode()

	exportQ := dashboardQuery(st, 1)
	exportQ.Del("page")
	exportQ.Del("limit")
	v.ExportURL = "/dashboard/export?" + exportQ.Encode()
	v.ExportXLSXURL = "/dashboard/export.xlsx?" + exportQ.Encode()

	if !queried {
		return v
	}

	v.FetchedAll = res.FetchedAll
	v.Total = res.Total
	v.Page = res.Page
	v.TotalPages = res.TotalPages
	for i, r := range res.Rows {
		v.Rows = append(v.Rows, newRowView(i, r))
	}
	if len(res.Rows) > 0 {
		v.RangeFrom = (res.Page-1)*res.Limit + 1
		v.RangeTo = v.RangeFrom + len(res.Rows) - 1
	}

	win := report.PageWindow(res.Page, res.TotalPages, report.DefaultWindowWidth)
	for _, p := range win.Pages {
		v.Pages = append(v.Pages, pageLinkView{Number: p, URL: dashboardURL(st, p), Current: p == win.Current})
	}
	if win.ShowFirst {
		v.FirstURL = dashboardURL(st, 1)
	}
	if win.ShowLast {
		v.LastURL = dashboardURL(st, win.TotalPages)
	}
	v.LeadingGap = win.LeadingGap
	v.TrailingGap = win.TrailingGap
	if win.HasPrev {
		v.PrevURL = dashboardURL(st, win.PrevPage)
	}
	if win.HasNext {
		v.NextURL = dashboardURL(st, win.NextPage)
	}

	return v
}

func summaryLine(rows int, header []string) string {
	if rows == 1 {
		return fmt.Sprintf("1 delivery row, %d columns", len(header))
	}
	return fmt.Sprintf("%d delivery rows, %d columns", rows, len(header))
}
