// Package fakehost is an in-memory platform.Host that records every call so
// tests can assert on bounds, loads, sends and disposal.
package fakehost

import (
	"fmt"
	"sync"

	"github.com/1broseidon/tabhost/internal/platform"
)

// Message is one Send or Reply call.
type Message struct {
	Origin  platform.ContentID
	Channel string
	Args    []any
}

// Host implements platform.Host.
type Host struct {
	mu          sync.Mutex
	nextWindow  int
	nextSurface int

	// Size is the content area given to new windows; zero uses the
	// requested window size.
	Size platform.Rect

	Windows  []*Window
	Surfaces []*Surface
	Replies  []Message

	// NewSurfaceErr, when set, is returned by NewSurface.
	NewSurfaceErr error
}

var _ platform.Host = (*Host)(nil)

// New returns an empty host.
func New() *Host {
	return &Host{}
}

func (h *Host) NewWindow(opts platform.WindowOptions) (platform.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextWindow++
	bounds := h.Size
	if bounds.Width == 0 && bounds.Height == 0 {
		bounds = platform.Rect{Width: opts.Width, Height: opts.Height}
	}
	w := &Window{
		id:      platform.ContentID(fmt.Sprintf("w%d", h.nextWindow)),
		Options: opts,
		bounds:  bounds,
		subs:    make(map[int]func(platform.WindowEvent)),
	}
	h.Windows = append(h.Windows, w)
	return w, nil
}

func (h *Host) NewSurface() (platform.Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.NewSurfaceErr != nil {
		return nil, h.NewSurfaceErr
	}
	h.nextSurface++
	s := &Surface{
		id:   platform.ContentID(fmt.Sprintf("s%d", h.nextSurface)),
		subs: make(map[int]func(platform.SurfaceEvent)),
	}
	h.Surfaces = append(h.Surfaces, s)
	return s, nil
}

func (h *Host) Reply(origin platform.ContentID, channel string, args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Replies = append(h.Replies, Message{Origin: origin, Channel: channel, Args: args})
	return nil
}

// LastWindow returns the most recently created window.
func (h *Host) LastWindow() *Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Windows) == 0 {
		return nil
	}
	return h.Windows[len(h.Windows)-1]
}

// LastSurface returns the most recently created surface.
func (h *Host) LastSurface() *Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.Surfaces) == 0 {
		return nil
	}
	return h.Surfaces[len(h.Surfaces)-1]
}

// Window implements platform.Window.
type Window struct {
	mu      sync.Mutex
	id      platform.ContentID
	native  platform.WindowID
	bounds  platform.Rect
	Options platform.WindowOptions

	Loaded    []string
	Sent      []Message
	Attached  []*Surface
	Maximized bool
	Minimized int
	Closes    int
	Destroyed int

	nextSub int
	subs    map[int]func(platform.WindowEvent)
}

var _ platform.Window = (*Window)(nil)

func (w *Window) ContentID() platform.ContentID { return w.id }

func (w *Window) NativeID() platform.WindowID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.native
}

// SetNativeID sets the id returned by NativeID.
func (w *Window) SetNativeID(id platform.WindowID) {
	w.mu.Lock()
	w.native = id
	w.mu.Unlock()
}

func (w *Window) ContentBounds() platform.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *Window) Load(address string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Loaded = append(w.Loaded, address)
	return nil
}

func (w *Window) Send(channel string, args ...any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Sent = append(w.Sent, Message{Origin: w.id, Channel: channel, Args: args})
	return nil
}

// LastSent returns the most recent message sent on channel.
func (w *Window) LastSent(channel string) (Message, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.Sent) - 1; i >= 0; i-- {
		if w.Sent[i].Channel == channel {
			return w.Sent[i], true
		}
	}
	return Message{}, false
}

// CountSent counts messages sent on channel.
func (w *Window) CountSent(channel string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, m := range w.Sent {
		if m.Channel == channel {
			n++
		}
	}
	return n
}

func (w *Window) AddSurface(s platform.Surface) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Attached = append(w.Attached, s.(*Surface))
	return nil
}

func (w *Window) RemoveSurface(s platform.Surface) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, a := range w.Attached {
		if a == s {
			w.Attached = append(w.Attached[:i], w.Attached[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("surface %s not attached", s.ContentID())
}

func (w *Window) Minimize() error {
	w.mu.Lock()
	w.Minimized++
	w.mu.Unlock()
	return nil
}

func (w *Window) Maximize() error {
	w.mu.Lock()
	w.Maximized = true
	w.mu.Unlock()
	return nil
}

func (w *Window) Unmaximize() error {
	w.mu.Lock()
	w.Maximized = false
	w.mu.Unlock()
	return nil
}

func (w *Window) IsMaximized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Maximized
}

func (w *Window) Close() error {
	w.mu.Lock()
	w.Closes++
	w.mu.Unlock()
	return nil
}

func (w *Window) Destroy() {
	w.mu.Lock()
	w.Destroyed++
	w.mu.Unlock()
}

func (w *Window) Subscribe(fn func(platform.WindowEvent)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Subscribers returns the number of live subscriptions.
func (w *Window) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Emit delivers ev to every subscriber.
func (w *Window) Emit(ev platform.WindowEvent) {
	w.mu.Lock()
	fns := make([]func(platform.WindowEvent), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Resize changes the content area and emits WindowResized.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	w.bounds.Width = width
	w.bounds.Height = height
	w.mu.Unlock()
	w.Emit(platform.WindowResized)
}

// Surface implements platform.Surface.
type Surface struct {
	mu        sync.Mutex
	id        platform.ContentID
	url       string
	History   []platform.Rect
	Loaded    []string
	Destroyed int

	nextSub int
	subs    map[int]func(platform.SurfaceEvent)
}

var _ platform.Surface = (*Surface)(nil)

func (s *Surface) ContentID() platform.ContentID { return s.id }

func (s *Surface) SetBounds(r platform.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, r)
	return nil
}

// Bounds returns the last rect set, or the zero rect.
func (s *Surface) Bounds() platform.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.History) == 0 {
		return platform.Rect{}
	}
	return s.History[len(s.History)-1]
}

func (s *Surface) Load(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Loaded = append(s.Loaded, address)
	s.url = address
	return nil
}

func (s *Surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Navigate changes the current address without a load call.
func (s *Surface) Navigate(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *Surface) Destroy() {
	s.mu.Lock()
	s.Destroyed++
	s.mu.Unlock()
}

func (s *Surface) Subscribe(fn func(platform.SurfaceEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Surface) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit delivers ev to every subscriber.
func (s *Surface) Emit(ev platform.SurfaceEvent) {
	s.mu.Lock()
	fns := make([]func(platform.SurfaceEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
