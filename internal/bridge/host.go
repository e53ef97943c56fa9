package bridge

import (
	"sync"

	"github.com/1broseidon/tabhost/internal/platform"
)

// subscribers is a set of event callbacks keyed by registration order.
type subscribers[E any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(E)
}

func (s *subscribers[E]) add(fn func(E)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(E))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *subscribers[E]) emit(ev E) {
	s.mu.Lock()
	fns := make([]func(E), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// window is a top-level window living in the shell. Geometry, maximized
// state and native id are whatever the shell last reported.
type window struct {
	b  *Bridge
	id platform.ContentID

	mu        sync.Mutex
	bounds    platform.Rect
	maximized bool
	native    platform.WindowID

	subs subscribers[platform.WindowEvent]
}

var _ platform.Window = (*window)(nil)

func newWindow(b *Bridge, id platform.ContentID, opts platform.WindowOptions) *window {
	return &window{
		b:      b,
		id:     id,
		bounds: platform.Rect{Width: opts.Width, Height: opts.Height},
	}
}

func (w *window) update(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ev.Bounds != nil {
		w.bounds = *ev.Bounds
	}
	if ev.Maximized != nil {
		w.maximized = *ev.Maximized
	}
	if ev.NativeID != 0 {
		w.native = ev.NativeID
	}
}

func (w *window) emit(ev platform.WindowEvent) { w.subs.emit(ev) }

func (w *window) ContentID() platform.ContentID { return w.id }

func (w *window) NativeID() platform.WindowID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.native
}

func (w *window) ContentBounds() platform.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *window) Load(address string) error {
	return w.b.send(Command{Op: OpWindowLoad, ID: w.id, Address: address})
}

func (w *window) Send(channel string, args ...any) error {
	return w.b.send(Command{Op: OpWindowSend, ID: w.id, Channel: channel, Args: args})
}

func (w *window) AddSurface(s platform.Surface) error {
	return w.b.send(Command{Op: OpWindowAttach, ID: w.id, Surface: s.ContentID()})
}

func (w *window) RemoveSurface(s platform.Surface) error {
	return w.b.send(Command{Op: OpWindowDetach, ID: w.id, Surface: s.ContentID()})
}

func (w *window) Minimize() error {
	return w.b.send(Command{Op: OpWindowMinimize, ID: w.id})
}

func (w *window) Maximize() error {
	if err := w.b.send(Command{Op: OpWindowMaximize, ID: w.id}); err != nil {
		return err
	}
	w.mu.Lock()
	w.maximized = true
	w.mu.Unlock()
	return nil
}

func (w *window) Unmaximize() error {
	if err := w.b.send(Command{Op: OpWindowUnmaximize, ID: w.id}); err != nil {
		return err
	}
	w.mu.Lock()
	w.maximized = false
	w.mu.Unlock()
	return nil
}

func (w *window) IsMaximized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maximized
}

func (w *window) Close() error {
	return w.b.send(Command{Op: OpWindowClose, ID: w.id})
}

func (w *window) Destroy() {
	w.b.forgetWindow(w.id)
	_ = w.b.send(Command{Op: OpWindowDestroy, ID: w.id})
}

func (w *window) Subscribe(fn func(platform.WindowEvent)) func() {
	return w.subs.add(fn)
}

// surface is an embedded content region living in the shell.
type surface struct {
	b  *Bridge
	id platform.ContentID

	mu  sync.Mutex
	url string

	subs subscribers[platform.SurfaceEvent]
}

var _ platform.Surface = (*surface)(nil)

func newSurface(b *Bridge, id platform.ContentID) *surface {
	return &surface{b: b, id: id}
}

func (s *surface) setURL(url string) {
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
}

func (s *surface) emit(ev platform.SurfaceEvent) { s.subs.emit(ev) }

func (s *surface) ContentID() platform.ContentID { return s.id }

func (s *surface) SetBounds(r platform.Rect) error {
	return s.b.send(Command{Op: OpSurfaceBounds, ID: s.id, Bounds: &r})
}

// Load records address as the current URL until the shell reports another.
func (s *surface) Load(address string) error {
	s.setURL(address)
	return s.b.send(Command{Op: OpSurfaceLoad, ID: s.id, Address: address})
}

func (s *surface) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *surface) Destroy() {
	s.b.forgetSurface(s.id)
	_ = s.b.send(Command{Op: OpSurfaceDestroy, ID: s.id})
}

func (s *surface) Subscribe(fn func(platform.SurfaceEvent)) func() {
	return s.subs.add(fn)
}
