//go:build !linux

package platform

import "errors"

// X11Ops is only available on Linux.
type X11Ops struct {
	HostOps
}

// NewX11Ops always fails off Linux.
func NewX11Ops(display string) (*X11Ops, error) {
	return nil, errors.New("x11 window ops are only supported on linux")
}

func (o *X11Ops) Disconnect() {}

func (o *X11Ops) LiveWindows() ([]WindowID, error) {
	return nil, errors.New("x11 window ops are only supported on linux")
}
