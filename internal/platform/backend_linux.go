//go:build linux

package platform

import (
	"fmt"

	"github.com/1broseidon/tabhost/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// X11Ops performs window commands through EWMH on the native window id the
// host reported. Windows without a native id fall back to HostOps.
type X11Ops struct {
	conn     *x11.Connection
	fallback HostOps
}

var (
	_ WindowOps = (*X11Ops)(nil)
	_ Placer    = (*X11Ops)(nil)
	_ Focuser   = (*X11Ops)(nil)
)

// NewX11Ops opens an X11 connection for window commands.
func NewX11Ops(display string) (*X11Ops, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &X11Ops{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (o *X11Ops) Disconnect() {
	if o != nil && o.conn != nil {
		o.conn.Close()
	}
}

func (o *X11Ops) Minimize(w Window) error {
	id := w.NativeID()
	if id == 0 {
		return o.fallback.Minimize(w)
	}
	return o.conn.Minimize(xproto.Window(id))
}

func (o *X11Ops) ToggleMaximize(w Window) error {
	id := w.NativeID()
	if id == 0 {
		return o.fallback.ToggleMaximize(w)
	}
	return o.conn.ToggleMaximize(xproto.Window(id))
}

func (o *X11Ops) Close(w Window) error {
	id := w.NativeID()
	if id == 0 {
		return o.fallback.Close(w)
	}
	return o.conn.CloseWindow(xproto.Window(id))
}

// LiveWindows lists the native ids of all client windows the window manager
// knows about.
func (o *X11Ops) LiveWindows() ([]WindowID, error) {
	ids, err := o.conn.ClientWindows()
	if err != nil {
		return nil, err
	}
	out := make([]WindowID, len(ids))
	for i, id := range ids {
		out[i] = WindowID(id)
	}
	return out, nil
}

// Place centers the window on the active monitor when no position is set.
func (o *X11Ops) Place(opts *WindowOptions) {
	if opts.X != nil || opts.Y != nil {
		return
	}
	mon, err := o.conn.ActiveMonitor()
	if err != nil {
		return
	}
	x, y := x11.Center(*mon, opts.Width, opts.Height)
	opts.X, opts.Y = &x, &y
}

// Focus activates the window through _NET_ACTIVE_WINDOW.
func (o *X11Ops) Focus(w Window) error {
	id := w.NativeID()
	if id == 0 {
		return nil
	}
	return o.conn.FocusWindow(xproto.Window(id))
}
