package bridge

import (
	"encoding/json"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/prompt"
)

// Command ops sent to the shell.
const (
	OpWindowCreate     = "window.create"
	OpWindowLoad       = "window.load"
	OpWindowSend       = "window.send"
	OpWindowAttach     = "window.attach"
	OpWindowDetach     = "window.detach"
	OpWindowMinimize   = "window.minimize"
	OpWindowMaximize   = "window.maximize"
	OpWindowUnmaximize = "window.unmaximize"
	OpWindowClose      = "window.close"
	OpWindowDestroy    = "window.destroy"
	OpSurfaceCreate    = "surface.create"
	OpSurfaceBounds    = "surface.bounds"
	OpSurfaceLoad      = "surface.load"
	OpSurfaceDestroy   = "surface.destroy"
	OpReply            = "reply"
	OpDialog           = "dialog"
)

// Event types received from the shell.
const (
	EventReady        = "ready"
	EventActivate     = "activate"
	EventMessage      = "message"
	EventWindow       = "window"
	EventWindowState  = "window.state"
	EventSurface      = "surface"
	EventSurfaceURL   = "surface.url"
	EventDialogResult = "dialog.result"
)

// eventLabel bounds the metric label for an inbound event type.
func eventLabel(typ string) string {
	switch typ {
	case EventReady, EventActivate, EventMessage, EventWindow, EventWindowState,
		EventSurface, EventSurfaceURL, EventDialogResult:
		return typ
	}
	return "unknown"
}

// Command is one frame sent to the shell. Only the fields relevant to Op
// are set.
type Command struct {
	Op      string                  `json:"op"`
	ID      platform.ContentID      `json:"id,omitempty"`
	Surface platform.ContentID      `json:"surface,omitempty"`
	Options *platform.WindowOptions `json:"options,omitempty"`
	Address string                  `json:"address,omitempty"`
	Channel string                  `json:"channel,omitempty"`
	Args    []any                   `json:"args,omitempty"`
	Bounds  *platform.Rect          `json:"bounds,omitempty"`
	Seq     uint64                  `json:"seq,omitempty"`
	Dialog  *prompt.Dialog          `json:"dialog,omitempty"`
}

// Event is one frame received from the shell.
type Event struct {
	Type      string             `json:"type"`
	ID        platform.ContentID `json:"id,omitempty"`
	Event     string             `json:"event,omitempty"`
	Origin    platform.ContentID `json:"origin,omitempty"`
	Channel   string             `json:"channel,omitempty"`
	Args      []json.RawMessage  `json:"args,omitempty"`
	Bounds    *platform.Rect     `json:"bounds,omitempty"`
	URL       string             `json:"url,omitempty"`
	Maximized *bool              `json:"maximized,omitempty"`
	NativeID  platform.WindowID  `json:"native_id,omitempty"`
	Seq       uint64             `json:"seq,omitempty"`
	Response  int                `json:"response"`
}
