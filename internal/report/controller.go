package report

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned when a newer search was issued while this one was
// in flight. Its result is dropped.
var ErrStale = errors.New("report result superseded by a newer search")

// State is the dashboard's report session: what is selected and where the
// cursor is. It only lives as long as the browser session that owns it.
type State struct {
	DriverID int64
	Date     string
	Status   StatusFilter
	Query    string
	Page     int
	Limit    int
}

func (s State) criteria() Criteria {
	return Criteria{
		DriverID: s.DriverID,
		Date:     s.Date,
		Filter:   Filter{Status: s.Status, Query: s.Query},
		Page:     s.Page,
		Limit:    s.Limit,
	}
}

func (s State) normalized() State {
	if s.Limit <= 0 {
		s.Limit = DefaultLimit
	}
	if s.Page < 1 {
		s.Page = 1
	}
	s.Status = ParseStatusFilter(string(s.Status))
	return s
}

// Controller owns one report session. Every search gets a sequence number
// and only the latest issued one may publish its rows.
type Controller struct {
	engine *Engine

	mu     sync.Mutex
	seq    uint64
	state  State
	result Result
	err    error
	// cachedFor is the page-less criteria the current fetch-all result was
	// built from; paging through it needs no backend calls.
	cachedFor *Criteria
}

func NewController(engine *Engine) *Controller {
	return &Controller{
		engine: engine,
		state:  State{Status: StatusAll, Page: 1, Limit: DefaultLimit},
		result: Result{Page: 1, Limit: DefaultLimit, TotalPages: 1},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the last published result and the error of the last
// published search, if any.
func (c *Controller) Result() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.err
}

// Apply moves the session to next. Any change other than the page number
// sends the cursor back to page one.
func (c *Controller) Apply(next State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	next = next.normalized()
	cur := c.state
	if next.DriverID != cur.DriverID ||
		next.Date != cur.Date ||
		next.Limit != cur.Limit ||
		next.Status != cur.Status ||
		next.Query != cur.Query {
		next.Page = 1
	}
	c.state = next
	return next
}

func (c *Controller) SetPage(page int) State {
	next := c.State()
	next.Page = page
	return c.Apply(next)
}

func (c *Controller) SetLimit(limit int) State {
	next := c.State()
	next.Limit = limit
	return c.Apply(next)
}

// ClearFilters drops the query and status filter but keeps the driver.
func (c *Controller) ClearFilters() State {
	next := c.State()
	next.Query = ""
	next.Status = StatusAll
	next.Page = 1
	return c.Apply(next)
}

// ClearSelection resets everything including the driver and the rows.
func (c *Controller) ClearSelection() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.state = State{Date: c.state.Date, Status: StatusAll, Page: 1, Limit: c.state.Limit}.normalized()
	c.result = Result{Page: 1, Limit: c.state.Limit, TotalPages: 1}
	c.err = nil
	c.cachedFor = nil
	return c.state
}

// Search starts a new search from page one. It always goes to the
// backend.
func (c *Controller) Search(ctx context.Context) (Result, error) {
	c.mu.Lock()
	c.state.Page = 1
	c.cachedFor = nil
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh runs the current state against the backend. When only the page
// changed since a fetch-all search, the cached rows are paged locally. On
// failure the rows are cleared rather than left stale.
func (c *Controller) Refresh(ctx context.Context) (Result, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	st := c.state
	crit := st.criteria().normalized()
	key := crit
	key.Page = 0
	if c.err == nil && c.result.FetchedAll && c.cachedFor != nil && *c.cachedFor == key {
		res := paginate(c.result.Filtered, crit.Page, crit.Limit)
		c.state.Page = res.Page
		c.result = res
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	res, err := c.engine.Query(ctx, crit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return Result{}, ErrStale
	}
	if err != nil {
		c.result = Result{Page: 1, Limit: st.Limit, TotalPages: 1}
		c.err = err
		c.cachedFor = nil
		return c.result, err
	}
	c.state.Page = res.Page
	c.result = res
	c.err = nil
	c.cachedFor = nil
	if res.FetchedAll {
		c.cachedFor = &key
	}
	return res, nil
}
