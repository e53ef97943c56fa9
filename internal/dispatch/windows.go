package dispatch

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/registry"
)

// openWindow creates and registers a top-level window. A path matching the
// standalone pattern is loaded into the window chrome itself; any other
// non-empty path becomes the window's first tab.
func (d *Dispatcher) openWindow(path, query string) (*registry.Record, error) {
	opts := d.opts.Window
	if placer, ok := d.ops.(platform.Placer); ok {
		placer.Place(&opts)
	}
	w, err := d.host.NewWindow(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	rec := d.reg.Add(w)
	id := w.ContentID()
	rec.Track(id, w.Subscribe(func(ev platform.WindowEvent) {
		d.post(func() { d.onWindowEvent(id, ev) })
	}))

	standalone := path != "" && d.opts.Standalone.MatchString(path)
	chromePath, chromeQuery := "", ""
	if standalone {
		chromePath, chromeQuery = path, query
	}
	if err := w.Load(registry.Address(d.opts.BaseURL, chromePath, chromeQuery)); err != nil {
		d.logger.Warn("failed to load window chrome", "window", id, "error", err)
	}
	d.logger.Info("window opened", "window", id, "path", path, "standalone", standalone)

	if !standalone && path != "" {
		if err := d.createView(rec, uuid.NewString(), path, query); err != nil {
			d.logger.Warn("failed to create initial view", "window", id, "path", path, "error", err)
		}
	}
	return rec, nil
}

func (d *Dispatcher) onWindowEvent(id platform.ContentID, ev platform.WindowEvent) {
	if ev == platform.WindowClosed {
		d.closeWindow(id)
		return
	}

	rec, ok := d.reg.Lookup(id)
	if !ok {
		return
	}
	switch ev {
	case platform.WindowResized:
		if err := rec.Relayout(); err != nil {
			d.logger.Warn("failed to relayout", "window", id, "error", err)
		}
	case platform.WindowEnterFullScreen, platform.WindowLeaveFullScreen:
		full := ev == platform.WindowEnterFullScreen
		if err := rec.Window.Send(ChanFullScreenState, full); err != nil {
			d.logger.Warn("failed to send fullscreen state", "window", id, "error", err)
		}
	case platform.WindowFinishLoad:
		d.sendSnapshot(rec)
	}
}

// closeWindow drops the record and disposes of its window and surfaces.
// Repeated notifications for the same window are ignored.
func (d *Dispatcher) closeWindow(id platform.ContentID) {
	rec, ok := d.reg.Remove(id)
	if !ok {
		return
	}
	rec.Release()
	for token, p := range d.pending {
		if p.window == id {
			p.cancel()
			delete(d.pending, token)
			d.metrics.Removals.WithLabelValues("window_closed").Inc()
		}
	}
	for _, view := range rec.Views.All() {
		view.Surface.Destroy()
	}
	rec.Window.Destroy()
	d.logger.Info("window closed", "window", id, "views", rec.Views.Len())

	if d.reg.Len() == 0 && d.opts.QuitOnLastClose && d.onEmpty != nil {
		d.onEmpty()
	}
}
