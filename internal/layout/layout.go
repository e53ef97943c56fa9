package layout

import "github.com/1broseidon/tabhost/internal/platform"

// ViewBounds computes where an embedded surface sits inside a window's
// content area. Surfaces start below the chrome and fill the rest of the
// window; hidden surfaces collapse to zero area at the same origin.
func ViewBounds(content platform.Rect, chromeHeight int, visible bool) platform.Rect {
	r := platform.Rect{X: 0, Y: chromeHeight}
	if !visible {
		return r
	}

	r.Width = content.Width
	r.Height = content.Height - chromeHeight
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}
