// Package registry tracks top-level windows and the ordered tabs each one
// hosts. It owns no goroutines; callers serialize access.
package registry

import (
	"errors"
	"slices"

	"github.com/1broseidon/tabhost/internal/platform"
)

// ErrDuplicateView is returned when a view id is already present in a window.
var ErrDuplicateView = errors.New("view id already exists")

// View is one tab: an embedded surface plus the state its content reports.
type View struct {
	ID      string
	Surface platform.Surface
	Loading bool
	// Progress is nil until the content reports a value.
	Progress *float64
}

// Tab is the UI-facing projection of a View.
type Tab struct {
	ID       string   `json:"id"`
	Loading  bool     `json:"loading"`
	Progress *float64 `json:"progress"`
	Path     string   `json:"path"`
}

// Snapshot is the tab list of one window in tab order plus its active id.
type Snapshot struct {
	Tabs         []Tab  `json:"tabs"`
	ActiveViewID string `json:"activeViewId"`
}

// Views is the ordered set of tabs of one window.
//
// active and previous are either empty or name a present view.
type Views struct {
	views    []*View
	active   string
	previous string
}

// NewViews returns an empty view set.
func NewViews() *Views {
	return &Views{}
}

func (v *Views) index(id string) int {
	return slices.IndexFunc(v.views, func(view *View) bool { return view.ID == id })
}

// Has reports whether id is present.
func (v *Views) Has(id string) bool {
	return v.index(id) >= 0
}

// Get returns the view with the given id.
func (v *Views) Get(id string) (*View, bool) {
	i := v.index(id)
	if i < 0 {
		return nil, false
	}
	return v.views[i], true
}

// BySurface returns the view whose surface has the given content id.
func (v *Views) BySurface(cid platform.ContentID) (*View, bool) {
	for _, view := range v.views {
		if view.Surface.ContentID() == cid {
			return view, true
		}
	}
	return nil, false
}

// All returns the views in tab order. The slice must not be modified.
func (v *Views) All() []*View {
	return v.views
}

// Len returns the number of views.
func (v *Views) Len() int {
	return len(v.views)
}

// Active returns the id of the visible view, or "".
func (v *Views) Active() string {
	return v.active
}

// Previous returns the id restored when the active view is removed, or "".
func (v *Views) Previous() string {
	return v.previous
}

// Add appends a loading view and makes it active. The previous-active id is
// left untouched.
func (v *Views) Add(id string, surface platform.Surface) error {
	if v.Has(id) {
		return ErrDuplicateView
	}
	v.views = append(v.views, &View{ID: id, Surface: surface, Loading: true})
	v.active = id
	return nil
}

// Remove discards the view and returns its surface, or nil when id is
// unknown. Removing the active view restores the previous-active view.
func (v *Views) Remove(id string) platform.Surface {
	i := v.index(id)
	if i < 0 {
		return nil
	}
	surface := v.views[i].Surface
	v.views = slices.Delete(v.views, i, i+1)

	switch id {
	case v.active:
		v.active = ""
		if v.previous != "" && v.Has(v.previous) {
			v.active = v.previous
		}
		v.previous = ""
	case v.previous:
		v.previous = ""
	}
	return surface
}

// Switch makes id the active view, remembering the current one as previous.
// It reports false when id is unknown.
func (v *Views) Switch(id string) bool {
	if !v.Has(id) {
		return false
	}
	if v.active != id {
		v.previous = v.active
	}
	v.active = id
	return true
}

// MarkState updates the loading and progress of the view backed by the
// surface cid. A nil progress leaves the stored value unchanged.
func (v *Views) MarkState(cid platform.ContentID, loading bool, progress *float64) bool {
	view, ok := v.BySurface(cid)
	if !ok {
		return false
	}
	view.Loading = loading
	if progress != nil {
		p := *progress
		view.Progress = &p
	}
	return true
}

// Snapshot projects the views through locate, which maps a surface address
// to its in-app path.
func (v *Views) Snapshot(locate func(address string) string) Snapshot {
	tabs := make([]Tab, 0, len(v.views))
	for _, view := range v.views {
		tab := Tab{ID: view.ID, Loading: view.Loading}
		if view.Progress != nil {
			p := *view.Progress
			tab.Progress = &p
		}
		address := view.Surface.URL()
		if locate != nil {
			address = locate(address)
		}
		tab.Path = address
		tabs = append(tabs, tab)
	}
	return Snapshot{Tabs: tabs, ActiveViewID: v.active}
}
