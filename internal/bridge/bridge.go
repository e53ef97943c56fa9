// Package bridge implements the platform host contract against a rendering
// shell connected over a websocket. Windows and surfaces are handles the
// bridge names itself; every operation on them becomes a command frame and
// the shell reports lifecycle events back on the same connection.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/platform"
)

// ErrNotConnected is returned while no shell is connected.
var ErrNotConnected = errors.New("shell not connected")

const writeTimeout = 5 * time.Second

// Handler receives requests and lifecycle notices from the shell.
type Handler interface {
	Deliver(origin platform.ContentID, msg dispatch.Message)
	Ready()
	Activate()
}

// Config configures a Bridge.
type Config struct {
	Path           string
	MetricsPath    string
	AllowedOrigins []string
	// Registry, when set, receives the bridge metrics and is served on
	// MetricsPath.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

type dialogResult struct {
	index int
	err   error
}

// Bridge is a platform.Host backed by one websocket connection.
type Bridge struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	connections prometheus.Gauge
	frames      *prometheus.CounterVec

	mu          sync.Mutex
	handler     Handler
	conn        *websocket.Conn
	nextWindow  int
	nextSurface int
	windows     map[platform.ContentID]*window
	surfaces    map[platform.ContentID]*surface
	dialogs     map[uint64]chan dialogResult
	nextSeq     uint64

	writeMu sync.Mutex
}

var _ platform.Host = (*Bridge)(nil)

// New creates a bridge. SetHandler must be called before serving.
func New(cfg Config) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var reg prometheus.Registerer
	if cfg.Registry != nil {
		reg = cfg.Registry
	}
	factory := promauto.With(reg)

	b := &Bridge{
		cfg:    cfg,
		logger: logger,
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabhost_bridge_connections",
			Help: "Connected rendering shells",
		}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabhost_bridge_frames_total",
			Help: "Websocket frames by direction and kind",
		}, []string{"direction", "kind"}),
		windows:  make(map[platform.ContentID]*window),
		surfaces: make(map[platform.ContentID]*surface),
		dialogs:  make(map[uint64]chan dialogResult),
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     b.checkOrigin,
	}
	return b
}

// SetHandler sets the receiver of shell requests.
func (b *Bridge) SetHandler(h Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Connected reports whether a shell is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Handler returns the HTTP handler serving the websocket endpoint and, when
// configured, the metrics endpoint.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(b.cfg.Path, b.serveWS)
	if b.cfg.Registry != nil && b.cfg.MetricsPath != "" {
		mux.Handle(b.cfg.MetricsPath, promhttp.HandlerFor(b.cfg.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (b *Bridge) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	b.logger.Info("bridge listening", "addr", addr, "path", b.cfg.Path)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.closeConn()
		return srv.Shutdown(shutdownCtx)
	}
}

func (b *Bridge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(b.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(b.cfg.AllowedOrigins, origin)
}

func (b *Bridge) serveWS(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	busy := b.conn != nil
	b.mu.Unlock()
	if busy {
		http.Error(w, "a shell is already connected", http.StatusConflict)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		b.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "a shell is already connected"),
			time.Now().Add(writeTimeout))
		conn.Close()
		return
	}
	b.conn = conn
	b.mu.Unlock()

	b.connections.Inc()
	b.logger.Info("shell connected", "remote", r.RemoteAddr)
	b.readLoop(conn)
	b.connections.Dec()
	b.logger.Info("shell disconnected", "remote", r.RemoteAddr)
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer b.disconnect(conn)
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("shell read ended", "error", err)
			}
			return
		}
		b.frames.WithLabelValues("in", eventLabel(ev.Type)).Inc()
		b.handleEvent(ev)
	}
}

func (b *Bridge) handleEvent(ev Event) {
	b.mu.Lock()
	handler := b.handler
	b.mu.Unlock()

	switch ev.Type {
	case EventReady:
		if handler != nil {
			handler.Ready()
		}
	case EventActivate:
		if handler != nil {
			handler.Activate()
		}
	case EventMessage:
		if handler != nil {
			handler.Deliver(ev.Origin, dispatch.Message{Channel: ev.Channel, Args: ev.Args})
		}
	case EventWindow, EventWindowState:
		w := b.lookupWindow(ev.ID)
		if w == nil {
			b.logger.Debug("event for unknown window", "window", ev.ID, "event", ev.Event)
			return
		}
		w.update(ev)
		if ev.Type == EventWindow {
			w.emit(platform.WindowEvent(ev.Event))
			if platform.WindowEvent(ev.Event) == platform.WindowClosed {
				b.forgetWindow(ev.ID)
			}
		}
	case EventSurface, EventSurfaceURL:
		s := b.lookupSurface(ev.ID)
		if s == nil {
			b.logger.Debug("event for unknown surface", "surface", ev.ID, "event", ev.Event)
			return
		}
		if ev.URL != "" {
			s.setURL(ev.URL)
		}
		if ev.Type == EventSurface {
			s.emit(platform.SurfaceEvent(ev.Event))
		}
	case EventDialogResult:
		b.resolveDialog(ev.Seq, dialogResult{index: ev.Response})
	default:
		b.logger.Debug("unknown shell event", "type", ev.Type)
	}
}

// disconnect reports every window of the lost shell as closed and fails
// open dialogs.
func (b *Bridge) disconnect(conn *websocket.Conn) {
	conn.Close()

	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	windows := make([]*window, 0, len(b.windows))
	for _, w := range b.windows {
		windows = append(windows, w)
	}
	b.windows = make(map[platform.ContentID]*window)
	b.surfaces = make(map[platform.ContentID]*surface)
	dialogs := b.dialogs
	b.dialogs = make(map[uint64]chan dialogResult)
	b.mu.Unlock()

	for _, ch := range dialogs {
		ch <- dialogResult{index: -1, err: ErrNotConnected}
	}
	for _, w := range windows {
		w.emit(platform.WindowClosed)
	}
}

func (b *Bridge) closeConn() {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	b.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"),
		time.Now().Add(writeTimeout))
	b.writeMu.Unlock()
	conn.Close()
}

func (b *Bridge) send(cmd Command) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("write %s: %w", cmd.Op, err)
	}
	b.frames.WithLabelValues("out", cmd.Op).Inc()
	return nil
}

func (b *Bridge) lookupWindow(id platform.ContentID) *window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.windows[id]
}

func (b *Bridge) lookupSurface(id platform.ContentID) *surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaces[id]
}

func (b *Bridge) forgetWindow(id platform.ContentID) {
	b.mu.Lock()
	delete(b.windows, id)
	b.mu.Unlock()
}

func (b *Bridge) forgetSurface(id platform.ContentID) {
	b.mu.Lock()
	delete(b.surfaces, id)
	b.mu.Unlock()
}

// NewWindow asks the shell to create a top-level window.
func (b *Bridge) NewWindow(opts platform.WindowOptions) (platform.Window, error) {
	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return nil, ErrNotConnected
	}
	b.nextWindow++
	w := newWindow(b, platform.ContentID(fmt.Sprintf("w%d", b.nextWindow)), opts)
	b.windows[w.id] = w
	b.mu.Unlock()

	if err := b.send(Command{Op: OpWindowCreate, ID: w.id, Options: &opts}); err != nil {
		b.forgetWindow(w.id)
		return nil, err
	}
	return w, nil
}

// NewSurface asks the shell to create an embedded surface.
func (b *Bridge) NewSurface() (platform.Surface, error) {
	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return nil, ErrNotConnected
	}
	b.nextSurface++
	s := newSurface(b, platform.ContentID(fmt.Sprintf("s%d", b.nextSurface)))
	b.surfaces[s.id] = s
	b.mu.Unlock()

	if err := b.send(Command{Op: OpSurfaceCreate, ID: s.id}); err != nil {
		b.forgetSurface(s.id)
		return nil, err
	}
	return s, nil
}

// Reply addresses a message to any content, managed or not.
func (b *Bridge) Reply(origin platform.ContentID, channel string, args ...any) error {
	return b.send(Command{Op: OpReply, ID: origin, Channel: channel, Args: args})
}
