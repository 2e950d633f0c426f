package report

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	rows      []Row
	hideTotal bool
	err       error
	calls     []PageRequest
}

func (f *fakeBackend) FetchReport(_ context.Context, req PageRequest) (Page, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return Page{}, f.err
	}
	start := min((req.Page-1)*req.Limit, len(f.rows))
	end := min(start+req.Limit, len(f.rows))
	return Page{Rows: f.rows[start:end], Total: len(f.rows), HasTotal: !f.hideTotal}, nil
}

func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		status := "Mismatch"
		if i%2 == 0 {
			status = "matched"
		}
		rows[i] = Row{Barcode: fmt.Sprintf("BC%04d", i), Address: "Main St " + fmt.Sprint(i), Status: status}
	}
	return rows
}

func TestQueryRequiresDriver(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(3)}
	_, err := NewEngine(backend).Query(context.Background(), Criteria{})
	require.ErrorIs(t, err, ErrNoDriver)
	assert.Empty(t, backend.calls)
}

func TestQueryRejectsMalformedDate(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(3)}
	_, err := NewEngine(backend).Query(context.Background(), Criteria{DriverID: 1, Date: "15/01/2024"})
	require.ErrorIs(t, err, ErrBadDate)
	assert.Empty(t, backend.calls)
}

func TestQueryWithoutFilterFetchesOnePage(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(45)}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{DriverID: 7, Date: "2024-01-15", Page: 2, Limit: 20})
	require.NoError(t, err)

	require.Len(t, backend.calls, 1)
	assert.Equal(t, PageRequest{DriverID: 7, Date: "2024-01-15", Page: 2, Limit: 20}, backend.calls[0])
	assert.Equal(t, 45, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	assert.False(t, res.FetchedAll)
	require.Len(t, res.Rows, 20)
	assert.Equal(t, "BC0020", res.Rows[0].Barcode)
}

func TestQueryFallsBackToPageLengthWithoutTotal(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(5), hideTotal: true}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{DriverID: 7, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.TotalPages)
}

func TestQueryWithFilterFetchesEveryPage(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(450)}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{
		DriverID: 7,
		Filter:   Filter{Status: StatusMatch},
		Page:     1,
		Limit:    50,
	})
	require.NoError(t, err)

	require.Len(t, backend.calls, 3)
	for i, call := range backend.calls {
		assert.Equal(t, i+1, call.Page)
		assert.Equal(t, FetchAllPageSize, call.Limit)
	}
	assert.True(t, res.FetchedAll)
	assert.Equal(t, 225, res.Total)
	assert.Equal(t, 5, res.TotalPages)
	require.Len(t, res.Rows, 50)
	for _, r := range res.Rows {
		assert.True(t, r.IsMatch())
	}
	assert.Len(t, res.Filtered, 225)
}

func TestQueryTextSearchKeepsArrivalOrder(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(30)}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{
		DriverID: 7,
		Filter:   Filter{Query: "  bc001 "},
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 10)
	for i, r := range res.Rows {
		assert.Equal(t, fmt.Sprintf("BC%04d", 10+i), r.Barcode)
	}
}

func TestQueryClampsPageAfterFilterShrinksTotal(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(40)}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{
		DriverID: 7,
		Filter:   Filter{Status: StatusMismatch},
		Page:     9,
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page)
	assert.Len(t, res.Rows, 10)
}

func TestQueryRefetchesLastPageWhenServerTotalShrank(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(15)}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{DriverID: 7, Page: 4, Limit: 10})
	require.NoError(t, err)
	require.Len(t, backend.calls, 2)
	assert.Equal(t, 2, backend.calls[1].Page)
	assert.Equal(t, 2, res.Page)
	assert.Len(t, res.Rows, 5)
}

func TestQueryClampsPageWhenReportEmptied(t *testing.T) {
	backend := &fakeBackend{}
	res, err := NewEngine(backend).Query(context.Background(), Criteria{DriverID: 7, Page: 5, Limit: 10})
	require.NoError(t, err)
	require.Len(t, backend.calls, 1)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.TotalPages)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Rows)
}

func TestQueryIsIdempotent(t *testing.T) {
	backend := &fakeBackend{rows: makeRows(120)}
	engine := NewEngine(backend)
	c := Criteria{DriverID: 7, Filter: Filter{Query: "main"}, Page: 2, Limit: 20}

	first, err := engine.Query(context.Background(), c)
	require.NoError(t, err)
	second, err := engine.Query(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Total, second.Total)
}

func TestQueryPropagatesBackendError(t *testing.T) {
	boom := errors.New("boom")
	backend := &fakeBackend{err: boom}
	_, err := NewEngine(backend).Query(context.Background(), Criteria{DriverID: 7, Filter: Filter{Query: "x"}})
	require.ErrorIs(t, err, boom)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 1, TotalPages(5, 0))
}
