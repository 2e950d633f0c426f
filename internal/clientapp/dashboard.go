package clientapp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/report"
	"github.com/cmjl/deliverydesk/internal/session"
)

func (s *server) today() string {
	return s.now().Format("2006-01-02")
}

// stateFromQuery reads the dashboard filters. A missing date means today;
// an explicitly empty one means every date.
func (s *server) stateFromQuery(q url.Values) report.State {
	date := s.today()
	if q.Has("date") {
		date = strings.TrimSpace(q.Get("date"))
	}
	driverID, _ := parseID(q.Get("driver"))
	return report.State{
		DriverID: driverID,
		Date:     date,
		Status:   report.ParseStatusFilter(q.Get("status")),
		Query:    strings.TrimSpace(q.Get("q")),
		Page:     parsePositiveInt(q.Get("page"), 1),
		Limit:    parsePositiveInt(q.Get("limit"), report.DefaultLimit),
	}
}

// driverCache holds the last driver list a session loaded.
type driverCache struct {
	mu      sync.Mutex
	options []report.DriverOption
}

// driverOptions loads the driver selector. When the backend fails after an
// earlier success, the cached list is used and no error is reported.
func (s *server) driverOptions(ctx context.Context, sess session.Session) ([]report.DriverOption, error) {
	cache := s.drivers.Get(sess.ID, func() *driverCache { return &driverCache{} })
	options, err := s.api.DriverOptions(ctx, sess.Token)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if err == nil {
		cache.options = options
		return options, nil
	}
	if cache.options != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("using cached driver list")
		return cache.options, nil
	}
	return nil, err
}

func reportErrorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, report.ErrNoDriver):
		return "Please select a driver."
	case errors.Is(err, report.ErrBadDate):
		return "Date must be in YYYY-MM-DD format."
	default:
		return backend.Message(err, fallback)
	}
}

func (s *server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFrom(r)
	logger := zerolog.Ctx(r.Context())
	q := r.URL.Query()
	ctl := s.controllerFor(sess)

	data := pageData{
		Title:   "Overview",
		Nav:     "dashboard",
		CSRF:    sess.CSRF,
		User:    sess,
		IsAdmin: true,
		Error:   q.Get("error"),
		Message: q.Get("message"),
	}

	options, err := s.driverOptions(r.Context(), sess)
	if err != nil {
		logger.Warn().Err(err).Msg("driver list unavailable")
		if data.Error == "" {
			data.Error = backend.Message(err, "Failed to fetch drivers")
		}
	}

	// Requests without driver or date move the session's current
	// selection instead of replacing it.
	relative := !q.Has("driver") && !q.Has("date")
	var st report.State
	switch {
	case q.Has("clear"):
		ctl.ClearSelection()
		st = s.stateFromQuery(q)
		st.DriverID, st.Status, st.Query = 0, report.StatusAll, ""
		st = ctl.Apply(st)
	case relative && q.Has("clear_filters"):
		st = ctl.ClearFilters()
	case relative && q.Has("limit"):
		st = ctl.SetLimit(parsePositiveInt(q.Get("limit"), report.DefaultLimit))
	case relative && q.Has("page"):
		st = ctl.SetPage(parsePositiveInt(q.Get("page"), 1))
	default:
		st = ctl.Apply(s.stateFromQuery(q))
	}

	queried := false
	var res report.Result
	switch {
	case st.DriverID > 0:
		queried = true
		if q.Has("search") {
			res, err = ctl.Search(r.Context())
		} else {
			res, err = ctl.Refresh(r.Context())
		}
		if errors.Is(err, report.ErrStale) {
			res, err = ctl.Result()
			data.Message = "A newer search replaced this one."
		}
		if err != nil {
			logger.Warn().Err(err).Int64("driver", st.DriverID).Msg("report fetch failed")
			data.Error = reportErrorMessage(err, "Failed to fetch data.")
		}
		st = ctl.State()
	case q.Has("search"):
		data.Error = "Please select a driver."
	}

	data.Dashboard = buildDashboardView(st, res, options, queried)
	s.render(w, r, s.dashboardTmpl, data)
}

func (s *server) exportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFrom(r)
	st := s.stateFromQuery(r.URL.Query())
	if st.DriverID <= 0 {
		redirectWith(w, r, dashboardURL(st, 1), "error", "Cannot export: please select a driver.")
		return
	}

	body, contentType, err := s.api.ExportReport(r.Context(), sess.Token, st.DriverID, st.Date)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Int64("driver", st.DriverID).Msg("export failed")
		redirectWith(w, r, dashboardURL(st, 1), "error", backend.Message(err, "Export failed."))
		return
	}
	writeAttachment(w, contentType, report.ExportFilename(st.DriverID, st.Date, "csv"), body)
}

func (s *server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFrom(r)
	st := s.stateFromQuery(r.URL.Query())
	if st.DriverID <= 0 {
		redirectWith(w, r, dashboardURL(st, 1), "error", "Cannot export: please select a driver.")
		return
	}

	engine := report.NewEngine(s.api.ReportFetcher(sess.Token))
	all, err := engine.FetchAll(r.Context(), st.DriverID, st.Date)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Int64("driver", st.DriverID).Msg("xlsx export failed")
		redirectWith(w, r, dashboardURL(st, 1), "error", backend.Message(err, "Export failed."))
		return
	}
	rows := report.Filter{Status: st.Status, Query: st.Query}.Apply(all)

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rows); err != nil {
		redirectWith(w, r, dashboardURL(st, 1), "error", "Export failed.")
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		report.ExportFilename(st.DriverID, st.Date, "xlsx"), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

type overlayResponse struct {
	Barcode  string           `json:"barcode"`
	Address  string           `json:"address"`
	Status   string           `json:"status"`
	Badge    string           `json:"badge"`
	Distance string           `json:"distance"`
	EmbedURL string           `json:"embedUrl"`
	ProofURL string           `json:"proofUrl,omitempty"`
	Place    report.Placement `json:"placement"`
}

// overlay answers the map panel request for row ?index= of the page the
// browser is showing, with the panel position computed from the measured
// geometry it sends along.
func (s *server) overlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFrom(r)
	q := r.URL.Query()

	if _, ok := s.reports.Peek(sess.ID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report loaded"})
		return
	}
	index, row, ok := s.loadedRow(sess, q.Get("index"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "row not found"})
		return
	}

	container := report.Rect{Top: parseFloat(q.Get("containerTop")), Height: parseFloat(q.Get("containerHeight"))}
	var rowRect *report.Rect
	if q.Has("rowTop") {
		rowRect = &report.Rect{Top: parseFloat(q.Get("rowTop")), Height: parseFloat(q.Get("rowHeight"))}
	}
	vp := report.Viewport{ScrollY: parseFloat(q.Get("scrollY")), Height: parseFloat(q.Get("viewportHeight"))}

	resp := overlayResponse{
		Barcode:  row.Barcode,
		Address:  row.Address,
		Status:   row.Status,
		Badge:    row.Badge(),
		Distance: row.Distance(),
		EmbedURL: report.EmbedURL(row, s.mapsKey),
		Place:    report.PlaceOverlay(report.DefaultOverlayLayout, container, rowRect, vp),
	}
	if row.ProofImage != "" {
		resp.ProofURL = "/dashboard/proof?" + url.Values{
			"index":   {strconv.Itoa(index)},
			"barcode": {row.Barcode},
		}.Encode()
	}
	writeJSON(w, http.StatusOK, resp)
}

// loadedRow resolves a row index against the rows the session last
// rendered.
func (s *server) loadedRow(sess session.Session, rawIndex string) (int, report.Row, bool) {
	ctl, ok := s.reports.Peek(sess.ID)
	if !ok {
		return 0, report.Row{}, false
	}
	res, _ := ctl.Result()
	index, err := strconv.Atoi(rawIndex)
	if err != nil || index < 0 || index >= len(res.Rows) {
		return 0, report.Row{}, false
	}
	return index, res.Rows[index], true
}

// proofImage serves the proof photo of a loaded report row. Only URLs the
// backend returned for that row are fetched; anything else gets the
// placeholder.
func (s *server) proofImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	src := ""
	if _, row, ok := s.loadedRow(sessionFrom(r), q.Get("index")); ok && row.Barcode == q.Get("barcode") {
		src = row.ProofImage
	}
	s.thumbs.Serve(w, r, src)
}
