package registry

import (
	"testing"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/platform/fakehost"
)

const testChrome = 46

func newRecord(t *testing.T, h *fakehost.Host, g *Registry) (*Record, *fakehost.Window) {
	t.Helper()
	w, err := h.NewWindow(platform.WindowOptions{Width: 1200, Height: 800})
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	return g.Add(w), w.(*fakehost.Window)
}

func addView(t *testing.T, h *fakehost.Host, rec *Record, id string) *fakehost.Surface {
	t.Helper()
	surface, err := h.NewSurface()
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	if err := rec.AddView(id, surface); err != nil {
		t.Fatalf("AddView(%s): %v", id, err)
	}
	return surface.(*fakehost.Surface)
}

func visibleViews(rec *Record) []string {
	var out []string
	for _, view := range rec.Views.All() {
		if !view.Surface.(*fakehost.Surface).Bounds().Empty() {
			out = append(out, view.ID)
		}
	}
	return out
}

func TestRecord_AddViewShowsNewCollapsesPrior(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec, w := newRecord(t, h, g)

	a := addView(t, h, rec, "a")
	b := addView(t, h, rec, "b")

	want := platform.Rect{X: 0, Y: testChrome, Width: 1200, Height: 800 - testChrome}
	if got := b.Bounds(); got != want {
		t.Fatalf("b bounds = %+v, want %+v", got, want)
	}
	if !a.Bounds().Empty() {
		t.Fatalf("expected a collapsed, got %+v", a.Bounds())
	}
	if len(w.Attached) != 2 {
		t.Fatalf("expected 2 attached surfaces, got %d", len(w.Attached))
	}
}

func TestRecord_SwitchViewExactlyOneVisible(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec, _ := newRecord(t, h, g)
	for _, id := range []string{"a", "b", "c"} {
		addView(t, h, rec, id)
	}

	for _, id := range []string{"a", "c", "b", "b"} {
		ok, err := rec.SwitchView(id)
		if !ok || err != nil {
			t.Fatalf("SwitchView(%s) = %v, %v", id, ok, err)
		}
		visible := visibleViews(rec)
		if len(visible) != 1 || visible[0] != id {
			t.Fatalf("after switch to %s visible = %v", id, visible)
		}
	}
}

func TestRecord_RemoveActiveShowsRestored(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec, w := newRecord(t, h, g)
	for _, id := range []string{"a", "b", "c"} {
		addView(t, h, rec, id)
	}
	_, _ = rec.SwitchView("a")
	_, _ = rec.SwitchView("b")

	surface, err := rec.RemoveView("b")
	if err != nil {
		t.Fatalf("RemoveView: %v", err)
	}
	if surface == nil {
		t.Fatalf("expected detached surface")
	}
	if len(w.Attached) != 2 {
		t.Fatalf("expected surface detached, attached=%d", len(w.Attached))
	}
	if visible := visibleViews(rec); len(visible) != 1 || visible[0] != "a" {
		t.Fatalf("expected a visible, got %v", visible)
	}
}

func TestRecord_RemoveUnknown(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec, _ := newRecord(t, h, g)
	addView(t, h, rec, "a")

	surface, err := rec.RemoveView("nope")
	if surface != nil || err != nil {
		t.Fatalf("RemoveView(unknown) = %v, %v", surface, err)
	}
}

func TestRecord_RelayoutActiveOnly(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec, w := newRecord(t, h, g)
	a := addView(t, h, rec, "a")
	b := addView(t, h, rec, "b")
	aCalls := len(a.History)

	w.Resize(1000, 600)
	if err := rec.Relayout(); err != nil {
		t.Fatalf("Relayout: %v", err)
	}

	want := platform.Rect{X: 0, Y: testChrome, Width: 1000, Height: 600 - testChrome}
	if got := b.Bounds(); got != want {
		t.Fatalf("b bounds = %+v, want %+v", got, want)
	}
	if len(a.History) != aCalls {
		t.Fatalf("inactive view was repositioned")
	}
}

func TestRecord_ReleaseCancelsSubscriptions(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec, w := newRecord(t, h, g)
	s := addView(t, h, rec, "a")

	rec.Track(w.ContentID(), w.Subscribe(func(platform.WindowEvent) {}))
	rec.Track(s.ContentID(), s.Subscribe(func(platform.SurfaceEvent) {}))

	rec.Untrack(s.ContentID())
	if s.Subscribers() != 0 {
		t.Fatalf("expected surface subscription cancelled")
	}
	rec.Release()
	if w.Subscribers() != 0 {
		t.Fatalf("expected window subscription cancelled")
	}
}

func TestRegistry_ResolveAndRemove(t *testing.T) {
	h := fakehost.New()
	g := New(testChrome)
	rec1, w1 := newRecord(t, h, g)
	rec2, _ := newRecord(t, h, g)
	s := addView(t, h, rec2, "tab")

	if got, ok := g.Resolve(w1.ContentID()); !ok || got != rec1 {
		t.Fatalf("Resolve(chrome) = %v, %v", got, ok)
	}
	if got, ok := g.Resolve(s.ContentID()); !ok || got != rec2 {
		t.Fatalf("Resolve(surface) = %v, %v", got, ok)
	}
	if _, ok := g.Resolve("stranger"); ok {
		t.Fatalf("expected unknown origin to be unresolved")
	}
	if g.OwnsChrome(s.ContentID()) {
		t.Fatalf("a tab surface is not a window chrome")
	}
	if !g.OwnsChrome(w1.ContentID()) {
		t.Fatalf("expected window chrome to be owned")
	}

	if _, ok := g.Remove(w1.ContentID()); !ok {
		t.Fatalf("expected first Remove to succeed")
	}
	if _, ok := g.Remove(w1.ContentID()); ok {
		t.Fatalf("expected second Remove to be a no-op")
	}
	if g.Len() != 1 || g.Records()[0] != rec2 {
		t.Fatalf("unexpected records after remove")
	}
}

func TestLocator(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		address string
		want    string
	}{
		{"dev server", "http://localhost:5173", "http://localhost:5173/#/Home", "Home"},
		{"trailing slash base", "http://localhost:5173/", "http://localhost:5173/#/Home", "Home"},
		{"query kept", "http://localhost:5173", "http://localhost:5173/#/Search?q=go", "Search?q=go"},
		{"packaged", "file:///opt/app/index.html", "file:///opt/app/index.html#/Home", "Home"},
		{"packaged with slash", "file:///opt/app/index.html", "file:///opt/app/index.html/#/Home", "Home"},
		{"packaged query", "file:///opt/app/index.html", "file:///opt/app/index.html#/Search?q=go", "Search?q=go"},
		{"foreign address", "http://localhost:5173", "https://example.com/", "https://example.com/"},
		{"empty path", "http://localhost:5173", "http://localhost:5173/#", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Locator(tt.base)(tt.address); got != tt.want {
				t.Errorf("Locator(%q)(%q) = %q, want %q", tt.base, tt.address, got, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	if got := Address("http://localhost:5173", "/Home", ""); got != "http://localhost:5173/#/Home" {
		t.Fatalf("Address without query = %q", got)
	}
	if got := Address("http://localhost:5173", "/Home", "a=1"); got != "http://localhost:5173/#/Home?a=1" {
		t.Fatalf("Address with query = %q", got)
	}
	if got := Address("file:///opt/app/dist/index.html", "/Home", ""); got != "file:///opt/app/dist/index.html#/Home" {
		t.Fatalf("Address under file base = %q", got)
	}
	if got := Address("file:///opt/app/dist/index.html", "/Home", "a=1"); got != "file:///opt/app/dist/index.html#/Home?a=1" {
		t.Fatalf("Address under file base with query = %q", got)
	}
}

func TestAddressRoundTripsThroughLocator(t *testing.T) {
	for _, base := range []string{"http://localhost:5173", "file:///opt/app/dist/index.html"} {
		locate := Locator(base)
		if got := locate(Address(base, "/Home", "tab=2")); got != "Home?tab=2" {
			t.Errorf("base %q: path = %q, want Home?tab=2", base, got)
		}
	}
}
