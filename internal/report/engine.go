package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	DefaultLimit     = 20
	FetchAllPageSize = 200
)

var LimitPresets = []int{10, 20, 50, 100}

var (
	ErrNoDriver = errors.New("no driver selected")
	ErrBadDate  = errors.New("date must be YYYY-MM-DD")
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// PageRequest is a single backend page call.
type PageRequest struct {
	DriverID int64
	Date     string
	Page     int
	Limit    int
}

// Page is what the backend returned for one PageRequest. Total is only
// meaningful when HasTotal is set.
type Page struct {
	Rows     []Row
	Total    int
	HasTotal bool
}

// Fetcher loads one page of a driver report.
type Fetcher interface {
	FetchReport(ctx context.Context, req PageRequest) (Page, error)
}

type FetcherFunc func(ctx context.Context, req PageRequest) (Page, error)

func (f FetcherFunc) FetchReport(ctx context.Context, req PageRequest) (Page, error) {
	return f(ctx, req)
}

// Criteria is everything the user picked on the dashboard.
type Criteria struct {
	DriverID int64
	Date     string
	Filter   Filter
	Page     int
	Limit    int
}

// Result is one logical, already paginated view of the report.
type Result struct {
	Rows       []Row
	Total      int
	Page       int
	Limit      int
	TotalPages int
	FetchedAll bool
	// Filtered holds every row that survived the filter when FetchedAll is
	// set; exports of the current view read from it.
	Filtered []Row
}

// TotalPages is ceil(total/limit) with a floor of one.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		return 1
	}
	return pages
}

// Engine turns dashboard criteria into backend calls. The backend has no
// text search or status parameter, so any active filter forces the whole
// report to be fetched and narrowed locally.
type Engine struct {
	fetcher  Fetcher
	pageSize int
}

func NewEngine(fetcher Fetcher) *Engine {
	return &Engine{fetcher: fetcher, pageSize: FetchAllPageSize}
}

func (c Criteria) normalized() Criteria {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Page < 1 {
		c.Page = 1
	}
	c.Date = strings.TrimSpace(c.Date)
	c.Filter.Status = ParseStatusFilter(string(c.Filter.Status))
	return c
}

func (c Criteria) Validate() error {
	if c.DriverID <= 0 {
		return ErrNoDriver
	}
	if c.Date != "" && !datePattern.MatchString(c.Date) {
		return ErrBadDate
	}
	return nil
}

func (e *Engine) Query(ctx context.Context, c Criteria) (Result, error) {
	c = c.normalized()
	if err := c.Validate(); err != nil {
		return Result{}, err
	}

	if c.Filter.Active() {
		all, err := e.FetchAll(ctx, c.DriverID, c.Date)
		if err != nil {
			return Result{}, err
		}
		return paginate(c.Filter.Apply(all), c.Page, c.Limit), nil
	}

	res, err := e.fetchPage(ctx, c)
	if err != nil {
		return Result{}, err
	}
	// The report shrank under us: show the new last page instead of an
	// empty one.
	if res.Page > res.TotalPages {
		if res.Total == 0 {
			res.Page = ClampPage(res.Page, res.TotalPages)
			return res, nil
		}
		c.Page = res.TotalPages
		return e.fetchPage(ctx, c)
	}
	return res, nil
}

// paginate slices an already filtered report, clamping page to the last
// available one.
func paginate(filtered []Row, page, limit int) Result {
	total := len(filtered)
	totalPages := TotalPages(total, limit)
	page = min(max(page, 1), totalPages)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	return Result{
		Rows:       filtered[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		FetchedAll: true,
		Filtered:   filtered,
	}
}

func (e *Engine) fetchPage(ctx context.Context, c Criteria) (Result, error) {
	p, err := e.fetcher.FetchReport(ctx, PageRequest{DriverID: c.DriverID, Date: c.Date, Page: c.Page, Limit: c.Limit})
	if err != nil {
		return Result{}, err
	}
	total := len(p.Rows)
	if p.HasTotal {
		total = p.Total
	}
	return Result{
		Rows:       p.Rows,
		Total:      total,
		Page:       c.Page,
		Limit:      c.Limit,
		TotalPages: TotalPages(total, c.Limit),
	}, nil
}

// FetchAll loads every row of the report page by page. Calls are strictly
// sequential because the first page's total decides how many follow.
func (e *Engine) FetchAll(ctx context.Context, driverID int64, date string) ([]Row, error) {
	req := PageRequest{DriverID: driverID, Date: date, Page: 1, Limit: e.pageSize}
	first, err := e.fetcher.FetchReport(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch report page 1: %w", err)
	}
	rows := append([]Row(nil), first.Rows...)
	total := len(first.Rows)
	if first.HasTotal {
		total = first.Total
	}
	pages := TotalPages(total, e.pageSize)
	for p := 2; p <= pages; p++ {
		req.Page = p
		next, err := e.fetcher.FetchReport(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("fetch report page %d: %w", p, err)
		}
		if len(next.Rows) == 0 {
			break
		}
		rows = append(rows, next.Rows...)
	}
	log.Debug().
		Int64("driver_id", driverID).
		Str("date", date).
		Int("pages", pages).
		Int("rows", len(rows)).
		Msg("fetched full report")
	return rows, nil
}
