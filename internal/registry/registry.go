package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/1broseidon/tabhost/internal/layout"
	"github.com/1broseidon/tabhost/internal/platform"
)

// Record is one top-level window and its tabs.
type Record struct {
	Window platform.Window
	Views  *Views

	chromeHeight int
	subs         map[platform.ContentID]func()
}

// ID returns the content id of the window chrome.
func (r *Record) ID() platform.ContentID {
	return r.Window.ContentID()
}

// Track stores the cancel func of a subscription made on behalf of content
// cid. It is called when cid is untracked or the record is released.
func (r *Record) Track(cid platform.ContentID, cancel func()) {
	if prev, ok := r.subs[cid]; ok {
		prev()
	}
	r.subs[cid] = cancel
}

// Untrack cancels the subscription held for cid.
func (r *Record) Untrack(cid platform.ContentID) {
	if cancel, ok := r.subs[cid]; ok {
		cancel()
		delete(r.subs, cid)
	}
}

// Release cancels every subscription held by the record.
func (r *Record) Release() {
	for cid, cancel := range r.subs {
		cancel()
		delete(r.subs, cid)
	}
}

func (r *Record) place(view *View, visible bool) error {
	bounds := layout.ViewBounds(r.Window.ContentBounds(), r.chromeHeight, visible)
	if err := view.Surface.SetBounds(bounds); err != nil {
		return fmt.Errorf("set bounds of view %s: %w", view.ID, err)
	}
	return nil
}

// AddView attaches surface as a new active tab. The previously visible tab
// is collapsed.
func (r *Record) AddView(id string, surface platform.Surface) error {
	prior := r.Views.Active()
	if err := r.Views.Add(id, surface); err != nil {
		return err
	}
	var errs []error
	if err := r.Window.AddSurface(surface); err != nil {
		errs = append(errs, fmt.Errorf("attach view %s: %w", id, err))
	}
	if view, ok := r.Views.Get(prior); ok {
		errs = append(errs, r.place(view, false))
	}
	view, _ := r.Views.Get(id)
	errs = append(errs, r.place(view, true))
	return errors.Join(errs...)
}

// RemoveView detaches and forgets the tab. It returns the detached surface,
// which the caller disposes of, or nil when id is unknown. The restored
// active tab, if any, is made visible.
func (r *Record) RemoveView(id string) (platform.Surface, error) {
	wasActive := r.Views.Active() == id
	surface := r.Views.Remove(id)
	if surface == nil {
		return nil, nil
	}
	var errs []error
	if err := r.Window.RemoveSurface(surface); err != nil {
		errs = append(errs, fmt.Errorf("detach view %s: %w", id, err))
	}
	if wasActive {
		if view, ok := r.Views.Get(r.Views.Active()); ok {
			errs = append(errs, r.place(view, true))
		}
	}
	return surface, errors.Join(errs...)
}

// SwitchView makes id the visible tab and repositions every tab. It reports
// false when id is unknown.
func (r *Record) SwitchView(id string) (bool, error) {
	if !r.Views.Switch(id) {
		return false, nil
	}
	var errs []error
	for _, view := range r.Views.All() {
		errs = append(errs, r.place(view, view.ID == id))
	}
	return true, errors.Join(errs...)
}

// Relayout repositions the active tab after the content area changed.
func (r *Record) Relayout() error {
	view, ok := r.Views.Get(r.Views.Active())
	if !ok {
		return nil
	}
	return r.place(view, true)
}

// Registry is the set of live window records in creation order.
type Registry struct {
	records      []*Record
	chromeHeight int
}

// New returns an empty registry whose tabs sit below a chrome of the given
// height.
func New(chromeHeight int) *Registry {
	return &Registry{chromeHeight: chromeHeight}
}

// SetChromeHeight changes the chrome height used for subsequent layout.
func (g *Registry) SetChromeHeight(h int) {
	g.chromeHeight = h
	for _, rec := range g.records {
		rec.chromeHeight = h
	}
}

// Add registers a window.
func (g *Registry) Add(w platform.Window) *Record {
	rec := &Record{
		Window:       w,
		Views:        NewViews(),
		chromeHeight: g.chromeHeight,
		subs:         make(map[platform.ContentID]func()),
	}
	g.records = append(g.records, rec)
	return rec
}

// Remove unregisters the window with chrome id cid. A second call for the
// same id reports false.
func (g *Registry) Remove(cid platform.ContentID) (*Record, bool) {
	i := slices.IndexFunc(g.records, func(rec *Record) bool { return rec.ID() == cid })
	if i < 0 {
		return nil, false
	}
	rec := g.records[i]
	g.records = slices.Delete(g.records, i, i+1)
	return rec, true
}

// Lookup returns the record whose window chrome has id cid.
func (g *Registry) Lookup(cid platform.ContentID) (*Record, bool) {
	for _, rec := range g.records {
		if rec.ID() == cid {
			return rec, true
		}
	}
	return nil, false
}

// Resolve maps the origin of an inbound request, either a window chrome or
// one of its tabs, to the owning record.
func (g *Registry) Resolve(origin platform.ContentID) (*Record, bool) {
	for _, rec := range g.records {
		if rec.ID() == origin {
			return rec, true
		}
		if _, ok := rec.Views.BySurface(origin); ok {
			return rec, true
		}
	}
	return nil, false
}

// OwnsChrome reports whether origin is the chrome of a registered window.
func (g *Registry) OwnsChrome(origin platform.ContentID) bool {
	_, ok := g.Lookup(origin)
	return ok
}

// Records returns the live records in creation order. The slice must not be
// modified.
func (g *Registry) Records() []*Record {
	return g.records
}

// Len returns the number of live windows.
func (g *Registry) Len() int {
	return len(g.records)
}

// Locator returns a func mapping a surface address to its in-app path: the
// hash prefix of base and one leading "/" are removed. Both "<base>/#" and
// "<base>#" are accepted. Addresses outside base are returned unchanged.
func Locator(base string) func(address string) string {
	root := strings.TrimSuffix(base, "/")
	prefixes := []string{root + "/#", root + "#"}
	return func(address string) string {
		for _, prefix := range prefixes {
			if rest, ok := strings.CutPrefix(address, prefix); ok {
				return strings.TrimPrefix(rest, "/")
			}
		}
		return address
	}
}

// Address builds the address a surface loads for path and query under base.
// A file base names the page itself, so the hash follows it directly.
func Address(base, path, query string) string {
	address := hashPrefix(base) + path
	if query != "" {
		address += "?" + query
	}
	return address
}

func hashPrefix(base string) string {
	if strings.HasPrefix(base, "file://") {
		return base + "#"
	}
	return strings.TrimSuffix(base, "/") + "/#"
}
