package report

import "strings"

type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusMatch    StatusFilter = "match"
	StatusMismatch StatusFilter = "mismatch"
)

func ParseStatusFilter(raw string) StatusFilter {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusMatch:
		return StatusMatch
	case StatusMismatch:
		return StatusMismatch
	default:
		return StatusAll
	}
}

// Filter is the client-side predicate applied to a materialized report.
type Filter struct {
	Status StatusFilter
	Query  string
}

// Active is true when the backend page cannot be trusted as-is because the
// rows must be narrowed locally.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || ParseStatusFilter(string(f.Status)) != StatusAll
}

func (f Filter) Keep(r Row) bool {
	switch ParseStatusFilter(string(f.Status)) {
	case StatusMatch:
		if !r.IsMatch() {
			return false
		}
	case StatusMismatch:
		if r.IsMatch() {
			return false
		}
	}
	return r.Contains(strings.ToLower(strings.TrimSpace(f.Query)))
}

// Apply returns the kept rows in their original order.
func (f Filter) Apply(rows []Row) []Row {
	if !f.Active() {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Keep(r) {
			out = append(out, r)
		}
	}
	return out
}
