package report

const DefaultWindowWidth = 7

// Window is the strip of page links under the table.
type Window struct {
	Pages      []int
	Current    int
	TotalPages int

	// ShowFirst/ShowLast ask for a shortcut to the edge page when the
	// strip does not already contain it; the ellipsis flags are set when
	// there is a gap between the shortcut and the strip.
	ShowFirst   bool
	ShowLast    bool
	LeadingGap  bool
	TrailingGap bool
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
}

// ClampPage pulls page back into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// PageWindow centers a window of width pages on current and shifts it
// toward whichever side still has room.
func PageWindow(current, totalPages, width int) Window {
	if width <= 0 {
		width = DefaultWindowWidth
	}
	if totalPages < 1 {
		totalPages = 1
	}
	current = ClampPage(current, totalPages)

	start := max(1, current-width/2)
	end := min(totalPages, start+width-1)
	if end-start+1 < width {
		start = max(1, end-width+1)
	}

	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}

	return Window{
		Pages:       pages,
		Current:     current,
		TotalPages:  totalPages,
		ShowFirst:   start > 1,
		ShowLast:    end < totalPages,
		LeadingGap:  start > 2,
		TrailingGap: end < totalPages-1,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
		PrevPage:    max(1, current-1),
		NextPage:    min(totalPages, current+1),
	}
}
