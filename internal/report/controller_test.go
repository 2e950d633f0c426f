package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyResetsPageOnCriteriaChange(t *testing.T) {
	c := NewController(NewEngine(&fakeBackend{}))
	c.Apply(State{DriverID: 3, Date: "2024-01-15", Page: 1, Limit: 20})
	assert.Equal(t, 4, c.SetPage(4).Page)

	assert.Equal(t, 1, c.SetLimit(50).Page)

	c.SetPage(3)
	st := c.State()
	st.Query = "abc"
	assert.Equal(t, 1, c.Apply(st).Page)

	c.SetPage(2)
	st = c.State()
	st.Status = StatusMismatch
	assert.Equal(t, 1, c.Apply(st).Page)

	c.SetPage(2)
	st = c.State()
	st.DriverID = 9
	assert.Equal(t, 1, c.Apply(st).Page)
}

func TestRefreshClampsStatePageWhenReportEmptied(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(60)}
	c := NewController(NewEngine(backend))
	c.Apply(State{DriverID: 3, Limit: 10})
	c.SetPage(5)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, c.State().Page)

	backend.rows = nil
	res, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.TotalPages)
	assert.Equal(t, 1, c.State().Page)
}

func TestSearchResetsPage(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(100)}
	c := NewController(NewEngine(backend))
	c.Apply(State{DriverID: 3, Limit: 10})
	c.SetPage(5)

	res, err := c.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, c.State().Page)
	assert.Equal(t, 1, backend.calls[0].Page)
}

func TestRefreshClearsRowsOnError(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(10)}
	c := NewController(NewEngine(backend))
	c.Apply(State{DriverID: 3})
	_, err := c.Search(context.Background())
	require.NoError(t, err)
	got, _ := c.Result()
	require.Len(t, got.Rows, 10)

	backend.err = errors.New("backend down")
	_, err = c.Refresh(context.Background())
	require.Error(t, err)

	got, lastErr := c.Result()
	assert.Empty(t, got.Rows)
	assert.Zero(t, got.Total)
	assert.EqualError(t, lastErr, "backend down")
}

func TestStaleSearchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	fetcher := FetcherFunc(func(ctx context.Context, req PageRequest) (Page, error) {
		calls++
		if calls == 1 {
			close(started)
			<-release
			return Page{Rows: []Row{{Barcode: "old"}}, Total: 1, HasTotal: true}, nil
		}
		return Page{Rows: []Row{{Barcode: "new"}}, Total: 1, HasTotal: true}, nil
	})
	c := NewController(NewEngine(fetcher))
	c.Apply(State{DriverID: 1})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background())
		errCh <- err
	}()
	<-started

	res, err := c.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", res.Rows[0].Barcode)

	close(release)
	require.ErrorIs(t, <-errCh, ErrStale)

	got, _ := c.Result()
	assert.Equal(t, "new", got.Rows[0].Barcode)
}

func TestClearSelectionDropsDriverAndRows(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(10)}
	c := NewController(NewEngine(backend))
	c.Apply(State{DriverID: 3, Query: "bc", Status: StatusMatch, Limit: 50})
	_, err := c.Search(context.Background())
	require.NoError(t, err)

	st := c.ClearSelection()
	assert.Zero(t, st.DriverID)
	assert.Equal(t, StatusAll, st.Status)
	assert.Empty(t, st.Query)
	assert.Equal(t, 50, st.Limit)
	got, _ := c.Result()
	assert.Empty(t, got.Rows)
}

func TestClearFiltersKeepsDriver(t *testing.T) {
	c := NewController(NewEngine(&fakeBackend{}))
	c.Apply(State{DriverID: 3, Query: "bc", Status: StatusMismatch})
	st := c.ClearFilters()
	assert.Equal(t, int64(3), st.DriverID)
	assert.Equal(t, StatusAll, st.Status)
	assert.Empty(t, st.Query)
	assert.Equal(t, 1, st.Page)
}

func TestPagingFilteredResultReusesFetchedRows(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(450)}
	c := NewController(NewEngine(backend))
	c.Apply(State{DriverID: 3, Status: StatusMatch, Limit: 20})

	res, err := c.Search(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 225, res.Total)
	assert.Len(t, backend.calls, 3)

	c.SetPage(4)
	res, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Page)
	assert.Equal(t, "BC0120", res.Rows[0].Barcode)
	assert.Len(t, backend.calls, 3)

	_, err = c.Search(context.Background())
	require.NoError(t, err)
	assert.Len(t, backend.calls, 6)

	st := c.State()
	st.Query = "BC01"
	c.Apply(st)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, backend.calls, 9)
}
