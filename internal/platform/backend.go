package platform

// WindowID is a platform-native window identifier (an X11 XID on Linux).
// Zero means the host did not report one.
type WindowID uint32

// ContentID identifies a piece of rendered content: the chrome UI of a
// top-level window or an embedded surface. Inbound messages carry the
// ContentID of their sender.
type ContentID string

// Rect describes a rectangular region in window content coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rect has zero area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// WindowOptions describes geometry and chrome for a new top-level window.
type WindowOptions struct {
	Title        string `json:"title,omitempty"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	X            *int   `json:"x,omitempty"`
	Y            *int   `json:"y,omitempty"`
	Frameless    bool   `json:"frameless,omitempty"`
	TrafficX     int    `json:"traffic_light_x,omitempty"`
	TrafficY     int    `json:"traffic_light_y,omitempty"`
	OpenDevTools bool   `json:"open_devtools,omitempty"`
}

// WindowEvent is the closed set of notifications a top-level window emits.
type WindowEvent string

const (
	WindowResized         WindowEvent = "resized"
	WindowClosed          WindowEvent = "closed"
	WindowEnterFullScreen WindowEvent = "enter-full-screen"
	WindowLeaveFullScreen WindowEvent = "leave-full-screen"
	WindowFinishLoad      WindowEvent = "finish-load"
)

// SurfaceEvent is the closed set of notifications an embedded surface emits.
type SurfaceEvent string

const (
	SurfaceFinishLoad SurfaceEvent = "finish-load"
)

// Window is a top-level window owned by the host.
type Window interface {
	ContentID() ContentID
	NativeID() WindowID
	ContentBounds() Rect
	Load(address string) error
	Send(channel string, args ...any) error
	AddSurface(s Surface) error
	RemoveSurface(s Surface) error
	Minimize() error
	Maximize() error
	Unmaximize() error
	IsMaximized() bool
	Close() error
	Destroy()
	// Subscribe registers fn for window events. The returned func cancels
	// the subscription.
	Subscribe(fn func(WindowEvent)) (cancel func())
}

// Surface is an embedded content region hosted inside a Window.
type Surface interface {
	ContentID() ContentID
	SetBounds(r Rect) error
	Load(address string) error
	URL() string
	Destroy()
	Subscribe(fn func(SurfaceEvent)) (cancel func())
}

// Host constructs windows and surfaces and addresses replies to arbitrary
// content, including content that belongs to no managed window.
type Host interface {
	NewWindow(opts WindowOptions) (Window, error)
	NewSurface() (Surface, error)
	Reply(origin ContentID, channel string, args ...any) error
}

// WindowOps performs the native window commands requested by the UI.
type WindowOps interface {
	Minimize(w Window) error
	ToggleMaximize(w Window) error
	Close(w Window) error
}

// Placer positions a new window before it is created. WindowOps
// implementations may also implement it.
type Placer interface {
	Place(opts *WindowOptions)
}

// Focuser raises an existing window. WindowOps implementations may also
// implement it.
type Focuser interface {
	Focus(w Window) error
}

// HostOps routes window commands through the host that owns the window.
type HostOps struct{}

var _ WindowOps = HostOps{}

func (HostOps) Minimize(w Window) error {
	return w.Minimize()
}

// ToggleMaximize restores a maximized window and maximizes any other.
func (HostOps) ToggleMaximize(w Window) error {
	if w.IsMaximized() {
		return w.Unmaximize()
	}
	return w.Maximize()
}

func (HostOps) Close(w Window) error {
	return w.Close()
}
