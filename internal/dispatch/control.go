package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/registry"
)

var (
	ErrUnknownWindow = errors.New("unknown window")
	ErrUnknownView   = errors.New("unknown view")
)

// WindowInfo describes one registered window.
type WindowInfo struct {
	ID           platform.ContentID `json:"id"`
	NativeID     platform.WindowID  `json:"native_id,omitempty"`
	Tabs         []registry.Tab     `json:"tabs"`
	ActiveViewID string             `json:"active_view_id"`
}

// Status summarizes the registry.
type Status struct {
	Windows         int `json:"windows"`
	Views           int `json:"views"`
	PendingRemovals int `json:"pending_removals"`
}

// Status returns counts of windows, tabs and outstanding confirmations.
func (d *Dispatcher) Status(ctx context.Context) (Status, error) {
	var st Status
	err := d.Call(ctx, func() {
		st.Windows = d.reg.Len()
		for _, rec := range d.reg.Records() {
			st.Views += rec.Views.Len()
		}
		st.PendingRemovals = len(d.pending)
	})
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

// Windows lists every window with its tabs.
func (d *Dispatcher) Windows(ctx context.Context) ([]WindowInfo, error) {
	var out []WindowInfo
	err := d.Call(ctx, func() {
		out = make([]WindowInfo, 0, d.reg.Len())
		for _, rec := range d.reg.Records() {
			out = append(out, d.windowInfo(rec))
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) windowInfo(rec *registry.Record) WindowInfo {
	snap := rec.Views.Snapshot(d.locate)
	return WindowInfo{
		ID:           rec.ID(),
		NativeID:     rec.Window.NativeID(),
		Tabs:         snap.Tabs,
		ActiveViewID: snap.ActiveViewID,
	}
}

// OpenWindow opens a window for path/query and returns it.
func (d *Dispatcher) OpenWindow(ctx context.Context, path, query string) (WindowInfo, error) {
	var (
		info    WindowInfo
		openErr error
	)
	err := d.Call(ctx, func() {
		rec, err := d.openWindow(path, query)
		if err != nil {
			openErr = err
			return
		}
		info = d.windowInfo(rec)
	})
	if err != nil {
		return WindowInfo{}, err
	}
	return info, openErr
}

// SwitchView activates a tab on behalf of a control client.
func (d *Dispatcher) SwitchView(ctx context.Context, window platform.ContentID, id string) error {
	var opErr error
	err := d.Call(ctx, func() {
		rec, ok := d.reg.Lookup(window)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrUnknownWindow, window)
			return
		}
		switched, err := rec.SwitchView(id)
		if !switched {
			opErr = fmt.Errorf("%w: %s", ErrUnknownView, id)
			return
		}
		if err != nil {
			d.logger.Warn("switch view incomplete", "window", window, "view", id, "error", err)
		}
		d.sendSnapshot(rec)
	})
	if err != nil {
		return err
	}
	return opErr
}

// RemoveView closes a tab on behalf of a control client. A loading tab goes
// through the same confirmation as a UI request; the call returns once the
// request is queued, with pending set when a confirmation is outstanding.
func (d *Dispatcher) RemoveView(ctx context.Context, window platform.ContentID, id string) (bool, error) {
	var (
		pending bool
		opErr   error
	)
	callErr := d.Call(ctx, func() {
		rec, ok := d.reg.Lookup(window)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrUnknownWindow, window)
			return
		}
		if !rec.Views.Has(id) {
			opErr = fmt.Errorf("%w: %s", ErrUnknownView, id)
			return
		}
		pending = d.requestRemoval(rec, id) != 0
	})
	if callErr != nil {
		return false, callErr
	}
	return pending, opErr
}

// Reconfigure replaces the options used for windows and tabs created from
// now on. Chrome height applies to the next layout pass of every window.
func (d *Dispatcher) Reconfigure(ctx context.Context, opts Options) error {
	return d.Call(ctx, func() {
		if opts.Standalone == nil {
			opts.Standalone = d.opts.Standalone
		}
		d.opts = opts
		d.locate = registry.Locator(opts.BaseURL)
		d.reg.SetChromeHeight(opts.ChromeHeight)
		d.logger.Info("dispatcher reconfigured", "base_url", opts.BaseURL, "chrome_height", opts.ChromeHeight)
	})
}
