package registry

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/platform/fakehost"
)

func newSurface(t *testing.T, h *fakehost.Host) platform.Surface {
	t.Helper()
	s, err := h.NewSurface()
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	return s
}

func ids(v *Views) []string {
	out := make([]string, 0, v.Len())
	for _, view := range v.All() {
		out = append(out, view.ID)
	}
	return out
}

func TestViews_AddMakesActiveAndKeepsPrevious(t *testing.T) {
	h := fakehost.New()
	v := NewViews()

	if err := v.Add("a", newSurface(t, h)); err != nil {
		t.Fatalf("Add(a): %v", err)
	}
	if err := v.Add("b", newSurface(t, h)); err != nil {
		t.Fatalf("Add(b): %v", err)
	}
	if v.Active() != "b" {
		t.Fatalf("expected active b, got %q", v.Active())
	}
	if v.Previous() != "" {
		t.Fatalf("expected empty previous, got %q", v.Previous())
	}
	view, _ := v.Get("b")
	if !view.Loading {
		t.Fatalf("expected new view to be loading")
	}
	if view.Progress != nil {
		t.Fatalf("expected unset progress, got %v", *view.Progress)
	}
}

func TestViews_AddDuplicateLeavesStateUnchanged(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	_ = v.Add("a", newSurface(t, h))
	_ = v.Add("b", newSurface(t, h))
	v.Switch("a")

	err := v.Add("b", newSurface(t, h))
	if !errors.Is(err, ErrDuplicateView) {
		t.Fatalf("expected ErrDuplicateView, got %v", err)
	}
	if got := ids(v); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("views changed: %v", got)
	}
	if v.Active() != "a" || v.Previous() != "b" {
		t.Fatalf("active/previous changed: %q/%q", v.Active(), v.Previous())
	}
}

func TestViews_RemoveActiveRestoresPrevious(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	for _, id := range []string{"a", "b", "c"} {
		_ = v.Add(id, newSurface(t, h))
	}
	v.Switch("a")
	v.Switch("b")

	if v.Active() != "b" || v.Previous() != "a" {
		t.Fatalf("setup: active/previous = %q/%q", v.Active(), v.Previous())
	}

	surface := v.Remove("b")
	if surface == nil {
		t.Fatalf("expected removed surface")
	}
	if v.Active() != "a" {
		t.Fatalf("expected active a, got %q", v.Active())
	}
	if v.Previous() != "" {
		t.Fatalf("expected empty previous, got %q", v.Previous())
	}
	if got := ids(v); !slices.Equal(got, []string{"a", "c"}) {
		t.Fatalf("expected [a c], got %v", got)
	}
}

func TestViews_RemoveActiveWithoutPreviousClears(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	_ = v.Add("a", newSurface(t, h))

	v.Remove("a")
	if v.Active() != "" {
		t.Fatalf("expected empty active, got %q", v.Active())
	}
}

func TestViews_RemoveNonActive(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	for _, id := range []string{"a", "b", "c"} {
		_ = v.Add(id, newSurface(t, h))
	}
	v.Switch("a")
	v.Switch("b")

	v.Remove("c")
	if v.Active() != "b" || v.Previous() != "a" {
		t.Fatalf("removing c changed active/previous: %q/%q", v.Active(), v.Previous())
	}

	v.Remove("a")
	if v.Active() != "b" {
		t.Fatalf("removing previous changed active: %q", v.Active())
	}
	if v.Previous() != "" {
		t.Fatalf("expected previous cleared, got %q", v.Previous())
	}
}

func TestViews_RemoveUnknownIsNoop(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	_ = v.Add("a", newSurface(t, h))

	if s := v.Remove("zzz"); s != nil {
		t.Fatalf("expected nil surface for unknown id")
	}
	if v.Len() != 1 || v.Active() != "a" {
		t.Fatalf("state changed on unknown remove")
	}
}

func TestViews_SwitchUnknownIsNoop(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	_ = v.Add("a", newSurface(t, h))

	if v.Switch("zzz") {
		t.Fatalf("expected Switch to report false")
	}
	if v.Active() != "a" || v.Previous() != "" {
		t.Fatalf("state changed: %q/%q", v.Active(), v.Previous())
	}
}

func TestViews_SwitchToActiveKeepsPrevious(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	_ = v.Add("a", newSurface(t, h))
	_ = v.Add("b", newSurface(t, h))
	v.Switch("a")

	v.Switch("a")
	if v.Previous() != "b" {
		t.Fatalf("expected previous b, got %q", v.Previous())
	}
}

func TestViews_MarkStateBySurface(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	for _, id := range []string{"a", "b", "c"} {
		_ = v.Add(id, newSurface(t, h))
	}
	c, _ := v.Get("c")

	progress := 42.0
	if !v.MarkState(c.Surface.ContentID(), true, &progress) {
		t.Fatalf("expected MarkState to find c")
	}
	progress = 7

	snap := v.Snapshot(nil)
	for _, tab := range snap.Tabs {
		switch tab.ID {
		case "c":
			if !tab.Loading || tab.Progress == nil || *tab.Progress != 42 {
				t.Fatalf("unexpected c tab: %+v", tab)
			}
		default:
			if tab.Progress != nil {
				t.Fatalf("tab %s progress changed: %v", tab.ID, *tab.Progress)
			}
		}
	}

	if v.MarkState("nobody", false, nil) {
		t.Fatalf("expected MarkState to miss unknown surface")
	}
}

func TestViews_SnapshotOrderAndLocator(t *testing.T) {
	h := fakehost.New()
	v := NewViews()
	for _, id := range []string{"x", "y"} {
		s := newSurface(t, h)
		_ = s.Load(Address("http://localhost:5173", "/"+id, ""))
		_ = v.Add(id, s)
	}

	snap := v.Snapshot(Locator("http://localhost:5173"))
	if snap.ActiveViewID != "y" {
		t.Fatalf("expected active y, got %q", snap.ActiveViewID)
	}
	if len(snap.Tabs) != 2 || snap.Tabs[0].ID != "x" || snap.Tabs[1].ID != "y" {
		t.Fatalf("unexpected tab order: %+v", snap.Tabs)
	}
	if snap.Tabs[0].Path != "x" {
		t.Fatalf("expected path x, got %q", snap.Tabs[0].Path)
	}
}

// Random create/remove/switch sequences must never leave active or previous
// naming a missing view.
func TestViews_ActiveAlwaysNamesPresentView(t *testing.T) {
	h := fakehost.New()
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 50; round++ {
		v := NewViews()
		next := 0
		for step := 0; step < 200; step++ {
			pick := func() string {
				if v.Len() == 0 || rng.IntN(5) == 0 {
					return fmt.Sprintf("missing-%d", rng.IntN(3))
				}
				return v.All()[rng.IntN(v.Len())].ID
			}
			switch rng.IntN(3) {
			case 0:
				_ = v.Add(fmt.Sprintf("v%d", next), newSurface(t, h))
				next++
			case 1:
				v.Remove(pick())
			case 2:
				v.Switch(pick())
			}

			if a := v.Active(); a != "" && !v.Has(a) {
				t.Fatalf("round %d step %d: active %q not present in %v", round, step, a, ids(v))
			}
			if p := v.Previous(); p != "" && !v.Has(p) {
				t.Fatalf("round %d step %d: previous %q not present in %v", round, step, p, ids(v))
			}
		}
	}
}
