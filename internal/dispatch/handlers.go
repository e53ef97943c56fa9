package dispatch

import (
	"errors"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/registry"
)

func (d *Dispatcher) handle(origin platform.ContentID, msg Message) {
	d.metrics.Requests.WithLabelValues(channelLabel(msg.Channel)).Inc()

	// Answered for any origin, managed or not.
	if msg.Channel == ChanIsInBrowserWin {
		d.handleIsInBrowserWindow(origin)
		return
	}

	rec, ok := d.reg.Resolve(origin)
	if !ok {
		d.metrics.Dropped.WithLabelValues("unresolved_origin").Inc()
		d.logger.Debug("dropping request from unknown origin", "origin", origin, "channel", msg.Channel)
		return
	}

	var err error
	switch msg.Channel {
	case ChanCreateView:
		err = d.handleCreateView(rec, msg)
	case ChanRemoveView:
		err = d.handleRemoveView(rec, msg)
	case ChanSwitchView:
		err = d.handleSwitchView(rec, msg)
	case ChanGetViews:
		d.sendSnapshot(rec)
	case ChanUpdateView:
		err = d.handleUpdateView(rec, origin, msg)
	case ChanMinimize:
		err = d.ops.Minimize(rec.Window)
	case ChanMaximize:
		err = d.ops.ToggleMaximize(rec.Window)
	case ChanClose:
		err = d.ops.Close(rec.Window)
	default:
		d.metrics.Dropped.WithLabelValues("unknown_channel").Inc()
		d.logger.Debug("dropping request on unknown channel", "origin", origin, "channel", msg.Channel)
		return
	}
	if err != nil {
		d.logger.Warn("request failed", "window", rec.ID(), "channel", msg.Channel, "error", err)
	}
}

func (d *Dispatcher) handleCreateView(rec *registry.Record, msg Message) error {
	id, err := stringArg(msg.Args, 0)
	if err != nil {
		return err
	}
	path, err := stringArg(msg.Args, 1)
	if err != nil {
		return err
	}
	query, err := stringArg(msg.Args, 2)
	if err != nil {
		return err
	}
	if id == "" {
		d.metrics.Dropped.WithLabelValues("missing_id").Inc()
		return errors.New("create-view without an id")
	}
	return d.createView(rec, id, path, query)
}

func (d *Dispatcher) handleRemoveView(rec *registry.Record, msg Message) error {
	id, err := stringArg(msg.Args, 0)
	if err != nil {
		return err
	}
	d.requestRemoval(rec, id)
	return nil
}

func (d *Dispatcher) handleSwitchView(rec *registry.Record, msg Message) error {
	id, err := stringArg(msg.Args, 0)
	if err != nil {
		return err
	}
	ok, err := rec.SwitchView(id)
	if !ok {
		d.logger.Debug("switch to unknown view", "window", rec.ID(), "view", id)
	}
	d.sendSnapshot(rec)
	return err
}

func (d *Dispatcher) handleUpdateView(rec *registry.Record, origin platform.ContentID, msg Message) error {
	st, err := viewStateArg(msg.Args, 0)
	if err != nil {
		return err
	}
	if !rec.Views.MarkState(origin, st.Loading, st.Progress) {
		d.logger.Debug("update-view from a non-tab origin", "window", rec.ID(), "origin", origin)
	}
	d.sendSnapshot(rec)
	return nil
}

func (d *Dispatcher) handleIsInBrowserWindow(origin platform.ContentID) {
	if err := d.host.Reply(origin, ChanIsInBrowserWinRet, d.reg.OwnsChrome(origin)); err != nil {
		d.logger.Warn("failed to reply", "origin", origin, "channel", ChanIsInBrowserWinRet, "error", err)
	}
}

// createView builds a surface for path/query and adds it as the active tab.
// A duplicate id leaves the window untouched.
func (d *Dispatcher) createView(rec *registry.Record, id, path, query string) error {
	if rec.Views.Has(id) {
		d.metrics.Dropped.WithLabelValues("duplicate_view").Inc()
		d.sendSnapshot(rec)
		return registry.ErrDuplicateView
	}

	surface, err := d.host.NewSurface()
	if err != nil {
		return err
	}

	window := rec.ID()
	cid := surface.ContentID()
	loaded := false
	rec.Track(cid, surface.Subscribe(func(ev platform.SurfaceEvent) {
		d.post(func() {
			if ev == platform.SurfaceFinishLoad && !loaded {
				loaded = true
				d.onFirstLoad(window, cid)
			}
		})
	}))

	addErr := rec.AddView(id, surface)
	if err := surface.Load(registry.Address(d.opts.BaseURL, path, query)); err != nil {
		addErr = errors.Join(addErr, err)
	}
	d.logger.Debug("view created", "window", window, "view", id, "path", path)
	d.sendSnapshot(rec)
	return addErr
}

func (d *Dispatcher) onFirstLoad(window, surface platform.ContentID) {
	rec, ok := d.reg.Lookup(window)
	if !ok {
		return
	}
	view, ok := rec.Views.BySurface(surface)
	if !ok {
		return
	}
	view.Loading = false
	d.sendSnapshot(rec)
}
