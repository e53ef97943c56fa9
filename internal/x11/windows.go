package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const (
	stateMaxHorz = "_NET_WM_STATE_MAXIMIZED_HORZ"
	stateMaxVert = "_NET_WM_STATE_MAXIMIZED_VERT"

	// _NET_WM_STATE client message actions.
	stateRemove = 0
	stateAdd    = 1
)

// IsMaximized reports whether both maximized states are set on a window.
func (c *Connection) IsMaximized(windowID xproto.Window) (bool, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false, err
	}

	hasMaxH := false
	hasMaxV := false
	for _, state := range states {
		switch state {
		case stateMaxHorz:
			hasMaxH = true
		case stateMaxVert:
			hasMaxV = true
		}
	}
	return hasMaxH && hasMaxV, nil
}

// ToggleMaximize restores a maximized window, otherwise maximizes it.
func (c *Connection) ToggleMaximize(windowID xproto.Window) error {
	maximized, err := c.IsMaximized(windowID)
	if err != nil {
		return fmt.Errorf("failed to read window state: %w", err)
	}

	action := stateAdd
	if maximized {
		action = stateRemove
	}
	if err := ewmh.WmStateReq(c.XUtil, windowID, action, stateMaxHorz); err != nil {
		return err
	}
	return ewmh.WmStateReq(c.XUtil, windowID, action, stateMaxVert)
}

// Minimize iconifies a window via WM_CHANGE_STATE.
func (c *Connection) Minimize(windowID xproto.Window) error {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// CloseWindow requests a graceful close via WM_DELETE_WINDOW.
func (c *Connection) CloseWindow(windowID xproto.Window) error {
	deleteReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return err
	}
	protocolsReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   protocolsReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteReply.Atom), 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		windowID,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// ClientWindows returns the EWMH client list as plain window IDs.
func (c *Connection) ClientWindows() ([]uint32, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	ids := make([]uint32, 0, len(clients))
	for _, win := range clients {
		ids = append(ids, uint32(win))
	}
	return ids, nil
}
