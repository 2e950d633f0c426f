package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageWindowSinglePage(t *testing.T) {
	w := PageWindow(1, 1, DefaultWindowWidth)
	assert.Equal(t, []int{1}, w.Pages)
	assert.False(t, w.ShowFirst)
	assert.False(t, w.ShowLast)
	assert.False(t, w.LeadingGap)
	assert.False(t, w.TrailingGap)
	assert.False(t, w.HasPrev)
	assert.False(t, w.HasNext)
}

func TestPageWindowShape(t *testing.T) {
	for total := 1; total <= 30; total++ {
		for page := 1; page <= total; page++ {
			w := PageWindow(page, total, DefaultWindowWidth)
			assert.Len(t, w.Pages, min(DefaultWindowWidth, total), "page %d of %d", page, total)
			assert.Contains(t, w.Pages, page)
			for i, p := range w.Pages {
				assert.GreaterOrEqual(t, p, 1)
				assert.LessOrEqual(t, p, total)
				if i > 0 {
					assert.Equal(t, w.Pages[i-1]+1, p)
				}
			}
		}
	}
}

func TestPageWindowCentersAndShifts(t *testing.T) {
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12, 13}, PageWindow(10, 20, 7).Pages)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, PageWindow(2, 20, 7).Pages)
	assert.Equal(t, []int{14, 15, 16, 17, 18, 19, 20}, PageWindow(19, 20, 7).Pages)
}

func TestPageWindowEdges(t *testing.T) {
	w := PageWindow(10, 20, 7)
	assert.True(t, w.ShowFirst)
	assert.True(t, w.LeadingGap)
	assert.True(t, w.ShowLast)
	assert.True(t, w.TrailingGap)

	w = PageWindow(5, 8, 7)
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, w.Pages)
	assert.True(t, w.ShowFirst)
	assert.False(t, w.LeadingGap)
	assert.False(t, w.ShowLast)
}

func TestPageWindowClampsOutOfRangePage(t *testing.T) {
	w := PageWindow(12, 3, 7)
	assert.Equal(t, 3, w.Current)
	assert.Equal(t, []int{1, 2, 3}, w.Pages)
	assert.Equal(t, 1, ClampPage(0, 3))
	assert.Equal(t, 1, ClampPage(4, 0))
}
