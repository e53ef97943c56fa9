package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	return monitors, nil
}

// ActiveMonitor returns the monitor under the pointer, clipped to the EWMH
// work area of the current desktop.
func (c *Connection) ActiveMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	active := findMonitorForPointer(c, monitors)
	if active == nil {
		active = &monitors[0]
	}

	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err == nil && len(workArea) > 0 {
		desktopIndex := 0
		if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(currentDesktop) < len(workArea) {
			desktopIndex = int(currentDesktop)
		}
		wa := workArea[desktopIndex]
		clipped := clip(*active, int(wa.X), int(wa.Y), int(wa.Width), int(wa.Height))
		active = &clipped
	}

	return active, nil
}

// clip intersects a monitor with a work area rectangle. A work area that
// does not overlap the monitor leaves it unchanged.
func clip(mon Monitor, x, y, w, h int) Monitor {
	x1 := max(mon.X, x)
	y1 := max(mon.Y, y)
	x2 := min(mon.X+mon.Width, x+w)
	y2 := min(mon.Y+mon.Height, y+h)
	if x2 <= x1 || y2 <= y1 {
		return mon
	}
	mon.X, mon.Y = x1, y1
	mon.Width, mon.Height = x2-x1, y2-y1
	return mon
}

// Center returns the origin that centers a w×h window on mon. Windows larger
// than the monitor are pinned to its top-left corner.
func Center(mon Monitor, w, h int) (x, y int) {
	x = mon.X + max(0, (mon.Width-w)/2)
	y = mon.Y + max(0, (mon.Height-h)/2)
	return x, y
}

func findMonitorForPointer(c *Connection, monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}

	x := int(pointer.RootX)
	y := int(pointer.RootY)

	for i := range monitors {
		mon := &monitors[i]
		if x >= mon.X && x < mon.X+mon.Width && y >= mon.Y && y < mon.Y+mon.Height {
			return mon
		}
	}
	return nil
}
