package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/prompt"
)

type delivered struct {
	origin platform.ContentID
	msg    dispatch.Message
}

type recordingHandler struct {
	mu        sync.Mutex
	messages  chan delivered
	ready     int
	activated int
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{messages: make(chan delivered, 8)}
}

func (h *recordingHandler) Deliver(origin platform.ContentID, msg dispatch.Message) {
	h.messages <- delivered{origin: origin, msg: msg}
}

func (h *recordingHandler) Ready() {
	h.mu.Lock()
	h.ready++
	h.mu.Unlock()
}

func (h *recordingHandler) Activate() {
	h.mu.Lock()
	h.activated++
	h.mu.Unlock()
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready, h.activated
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type testShell struct {
	t      *testing.T
	b      *Bridge
	h      *recordingHandler
	reg    *prometheus.Registry
	server *httptest.Server
	conn   *websocket.Conn
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()
	reg := prometheus.NewRegistry()
	b := New(Config{
		Path:        "/shell",
		MetricsPath: "/metrics",
		Registry:    reg,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h := newRecordingHandler()
	b.SetHandler(h)
	server := httptest.NewServer(b.Handler())
	t.Cleanup(server.Close)
	return &testShell{t: t, b: b, h: h, reg: reg, server: server}
}

func (s *testShell) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/shell"
}

func (s *testShell) connect() {
	s.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	if err != nil {
		s.t.Fatalf("dial: %v", err)
	}
	s.conn = conn
	s.t.Cleanup(func() { conn.Close() })
	waitFor(s.t, "shell connection", s.b.Connected)
}

func (s *testShell) read() Command {
	s.t.Helper()
	if err := s.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		s.t.Fatalf("deadline: %v", err)
	}
	var cmd Command
	if err := s.conn.ReadJSON(&cmd); err != nil {
		s.t.Fatalf("read command: %v", err)
	}
	return cmd
}

func (s *testShell) write(ev Event) {
	s.t.Helper()
	if err := s.conn.WriteJSON(ev); err != nil {
		s.t.Fatalf("write event: %v", err)
	}
}

func TestBridge_NotConnected(t *testing.T) {
	s := newTestShell(t)

	if _, err := s.b.NewWindow(platform.WindowOptions{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("NewWindow: expected ErrNotConnected, got %v", err)
	}
	if _, err := s.b.NewSurface(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("NewSurface: expected ErrNotConnected, got %v", err)
	}
	if err := s.b.Reply("w1", "x"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Reply: expected ErrNotConnected, got %v", err)
	}
}

func TestBridge_LifecycleEvents(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	s.write(Event{Type: EventReady})
	s.write(Event{Type: EventActivate})
	waitFor(t, "ready and activate", func() bool {
		r, a := s.h.counts()
		return r == 1 && a == 1
	})
}

func TestBridge_WindowCommandsAndEvents(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	w, err := s.b.NewWindow(platform.WindowOptions{Title: "t", Width: 1200, Height: 800})
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	cmd := s.read()
	if cmd.Op != OpWindowCreate || cmd.ID != w.ContentID() || cmd.Options == nil || cmd.Options.Width != 1200 {
		t.Fatalf("unexpected create command %+v", cmd)
	}
	if got := w.ContentBounds(); got.Width != 1200 || got.Height != 800 {
		t.Fatalf("initial bounds %+v", got)
	}

	events := make(chan platform.WindowEvent, 4)
	cancel := w.Subscribe(func(ev platform.WindowEvent) { events <- ev })
	defer cancel()

	if err := w.Send("get-views-return", []string{"a"}, "a"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	cmd = s.read()
	if cmd.Op != OpWindowSend || cmd.Channel != "get-views-return" || len(cmd.Args) != 2 {
		t.Fatalf("unexpected send command %+v", cmd)
	}

	maximized := true
	s.write(Event{Type: EventWindowState, ID: w.ContentID(), Maximized: &maximized, NativeID: 0x3a00007})
	s.write(Event{Type: EventWindow, ID: w.ContentID(), Event: "resized", Bounds: &platform.Rect{Width: 900, Height: 600}})

	select {
	case ev := <-events:
		if ev != platform.WindowResized {
			t.Fatalf("expected resized, got %q", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no resized event")
	}
	if got := w.ContentBounds(); got.Width != 900 || got.Height != 600 {
		t.Fatalf("bounds not updated: %+v", got)
	}
	if !w.IsMaximized() || w.NativeID() != 0x3a00007 {
		t.Fatalf("window state not updated: maximized=%v native=%#x", w.IsMaximized(), w.NativeID())
	}

	s.write(Event{Type: EventWindow, ID: w.ContentID(), Event: "closed"})
	select {
	case ev := <-events:
		if ev != platform.WindowClosed {
			t.Fatalf("expected closed, got %q", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no closed event")
	}
}

func TestBridge_SurfaceURLAndMessages(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	surf, err := s.b.NewSurface()
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	if cmd := s.read(); cmd.Op != OpSurfaceCreate {
		t.Fatalf("unexpected command %+v", cmd)
	}

	if err := surf.Load("http://localhost:5173/#/Home"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cmd := s.read(); cmd.Op != OpSurfaceLoad || cmd.Address != "http://localhost:5173/#/Home" {
		t.Fatalf("unexpected load command %+v", cmd)
	}
	if err := surf.SetBounds(platform.Rect{Y: 46, Width: 10, Height: 10}); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	if cmd := s.read(); cmd.Op != OpSurfaceBounds || cmd.Bounds == nil || cmd.Bounds.Y != 46 {
		t.Fatalf("unexpected bounds command %+v", cmd)
	}

	loaded := make(chan struct{}, 1)
	surf.Subscribe(func(ev platform.SurfaceEvent) {
		if ev == platform.SurfaceFinishLoad {
			loaded <- struct{}{}
		}
	})
	s.write(Event{Type: EventSurface, ID: surf.ContentID(), Event: "finish-load", URL: "http://localhost:5173/#/Docs"})
	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatalf("no finish-load event")
	}
	if got := surf.URL(); got != "http://localhost:5173/#/Docs" {
		t.Fatalf("url not updated: %q", got)
	}

	args := []json.RawMessage{json.RawMessage(`"tab-1"`), json.RawMessage(`"/Home"`)}
	s.write(Event{Type: EventMessage, Origin: "w1", Channel: "create-view", Args: args})
	select {
	case d := <-s.h.messages:
		if d.origin != "w1" || d.msg.Channel != "create-view" || len(d.msg.Args) != 2 {
			t.Fatalf("unexpected delivery %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("message not delivered")
	}
}

func TestBridge_DialogRoundTrip(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	type result struct {
		idx int
		err error
	}
	done := make(chan result, 1)
	go func() {
		idx, err := s.b.ShowDialog(context.Background(), "w1", prompt.Dialog{
			Title:   "Close tab",
			Buttons: []string{"Cancel", "Close anyway"},
		})
		done <- result{idx, err}
	}()

	cmd := s.read()
	if cmd.Op != OpDialog || cmd.ID != "w1" || cmd.Dialog == nil || len(cmd.Dialog.Buttons) != 2 {
		t.Fatalf("unexpected dialog command %+v", cmd)
	}
	s.write(Event{Type: EventDialogResult, Seq: cmd.Seq, Response: 1})

	select {
	case r := <-done:
		if r.err != nil || r.idx != 1 {
			t.Fatalf("ShowDialog = %d, %v", r.idx, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("dialog never resolved")
	}
}

func TestBridge_DisconnectClosesWindowsAndDialogs(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	w, err := s.b.NewWindow(platform.WindowOptions{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	s.read()
	closed := make(chan struct{}, 1)
	w.Subscribe(func(ev platform.WindowEvent) {
		if ev == platform.WindowClosed {
			closed <- struct{}{}
		}
	})

	dialogErr := make(chan error, 1)
	go func() {
		_, err := s.b.ShowDialog(context.Background(), w.ContentID(), prompt.Dialog{})
		dialogErr <- err
	}()
	s.read()

	s.conn.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("window not closed on disconnect")
	}
	select {
	case err := <-dialogErr:
		if !errors.Is(err, ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("dialog not failed on disconnect")
	}
	waitFor(t, "disconnect", func() bool { return !s.b.Connected() })
}

func TestBridge_RejectsSecondShell(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	if err == nil {
		t.Fatalf("expected second dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %v", resp)
	}
}

func TestBridge_MetricsEndpoint(t *testing.T) {
	s := newTestShell(t)
	s.connect()

	waitFor(t, "connection gauge", func() bool {
		resp, err := http.Get(s.server.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics: %v", err)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		return strings.Contains(string(raw), "tabhost_bridge_connections 1")
	})
}

func TestEventLabel(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{EventReady, EventReady},
		{EventWindowState, EventWindowState},
		{EventDialogResult, EventDialogResult},
		{"", "unknown"},
		{"window.state.extra", "unknown"},
	}
	for _, tt := range tests {
		if got := eventLabel(tt.typ); got != tt.want {
			t.Errorf("eventLabel(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
