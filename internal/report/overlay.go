package report

// Rect is a vertical slice of a bounding box, in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

type Viewport struct {
	ScrollY float64 `json:"scrollY"`
	Height  float64 `json:"height"`
}

// OverlayLayout holds the fixed measurements of the map panel.
type OverlayLayout struct {
	HeaderHeight float64
	MapHeight    float64
	FooterHeight float64
	Padding      float64
	LeadIn       float64
	TopMargin    float64
	BottomMargin float64
}

var DefaultOverlayLayout = OverlayLayout{
	HeaderHeight: 40,
	MapHeight:    320,
	FooterHeight: 84,
	Padding:      12,
	LeadIn:       8,
	TopMargin:    80,
	BottomMargin: 40,
}

func (l OverlayLayout) PanelHeight() float64 {
	return l.HeaderHeight + l.MapHeight + l.FooterHeight
}

// Placement is where the panel goes inside the container and whether the
// page must scroll for it to be fully visible.
type Placement struct {
	Top      float64 `json:"top"`
	Scroll   bool    `json:"scroll"`
	ScrollTo float64 `json:"scrollTo"`
}

// PlaceOverlay positions the panel next to the clicked row. A nil row
// (not rendered, stale reference) parks the panel at the top padding.
func PlaceOverlay(l OverlayLayout, container Rect, row *Rect, vp Viewport) Placement {
	if row == nil {
		return Placement{Top: l.Padding}
	}
	panel := l.PanelHeight()

	top := row.Top - container.Top - l.LeadIn
	maxTop := max(l.Padding, container.Height-panel-l.Padding)
	top = min(max(top, l.Padding), maxTop)

	screenTop := container.Top + top
	if screenTop < l.TopMargin || screenTop > vp.Height-panel-l.BottomMargin {
		return Placement{
			Top:      top,
			Scroll:   true,
			ScrollTo: max(0, vp.ScrollY+screenTop-l.TopMargin),
		}
	}
	return Placement{Top: top}
}
