// Package dispatch runs the single event loop that owns the window registry.
// UI requests, window and surface notifications, control commands and
// confirmation results are all queued and handled one at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/1broseidon/tabhost/internal/config"
	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/prompt"
	"github.com/1broseidon/tabhost/internal/registry"
)

// ErrStopped is returned by Call once Run has returned.
var ErrStopped = errors.New("dispatcher stopped")

const queueSize = 256

// Options are the values the dispatcher consumes from configuration.
type Options struct {
	BaseURL         string
	ChromeHeight    int
	Window          platform.WindowOptions
	Standalone      *regexp.Regexp
	Confirm         prompt.Confirmation
	QuitOnLastClose bool
}

// OptionsFromConfig derives dispatcher options from a validated config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	standalone, err := cfg.Standalone()
	if err != nil {
		return Options{}, fmt.Errorf("standalone_pattern: %w", err)
	}
	return Options{
		BaseURL:      cfg.BaseURL(),
		ChromeHeight: cfg.ChromeHeight,
		Window: platform.WindowOptions{
			Title:        cfg.Window.Title,
			Width:        cfg.Window.Width,
			Height:       cfg.Window.Height,
			Frameless:    cfg.Window.Frameless,
			TrafficX:     cfg.Window.TrafficLightX,
			TrafficY:     cfg.Window.TrafficLightY,
			OpenDevTools: cfg.Window.OpenDevTools,
		},
		Standalone: standalone,
		Confirm: prompt.Confirmation{
			Title:        cfg.Confirm.Title,
			Message:      cfg.Confirm.Message,
			CancelLabel:  cfg.Confirm.CancelLabel,
			ConfirmLabel: cfg.Confirm.ConfirmLabel,
		},
		QuitOnLastClose: cfg.QuitOnLastClose,
	}, nil
}

// Config wires a Dispatcher to its collaborators.
type Config struct {
	Host     platform.Host
	Ops      platform.WindowOps
	Prompter prompt.Prompter
	Logger   *slog.Logger
	Metrics  *Metrics
	Options  Options
	// OnLastWindowClosed runs on the loop when the last window closes and
	// QuitOnLastClose is set.
	OnLastWindowClosed func()
}

// Dispatcher owns the window registry. All registry access happens on the
// goroutine running Run.
type Dispatcher struct {
	host     platform.Host
	ops      platform.WindowOps
	prompter prompt.Prompter
	logger   *slog.Logger
	metrics  *Metrics
	onEmpty  func()

	opts   Options
	locate func(string) string
	reg    *registry.Registry

	pending   map[uint64]*pendingRemoval
	nextToken uint64

	events chan func()
	done   chan struct{}
	ctx    context.Context
}

// New creates a dispatcher. Call Run to start processing.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	ops := cfg.Ops
	if ops == nil {
		ops = platform.HostOps{}
	}
	opts := cfg.Options
	if opts.Standalone == nil {
		opts.Standalone = regexp.MustCompile(config.DefaultStandalonePattern)
	}

	return &Dispatcher{
		host:     cfg.Host,
		ops:      ops,
		prompter: cfg.Prompter,
		logger:   logger,
		metrics:  metrics,
		onEmpty:  cfg.OnLastWindowClosed,
		opts:     opts,
		locate:   registry.Locator(opts.BaseURL),
		reg:      registry.New(opts.ChromeHeight),
		pending:  make(map[uint64]*pendingRemoval),
		events:   make(chan func(), queueSize),
		done:     make(chan struct{}),
		ctx:      context.Background(),
	}
}

// Run processes queued events until ctx is cancelled. Pending confirmations
// are abandoned and every remaining window record is released on return.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.ctx = ctx
	defer close(d.done)

	d.logger.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			d.logger.Info("dispatcher stopped")
			return nil
		case fn := <-d.events:
			d.exec(fn)
		}
	}
}

func (d *Dispatcher) exec(fn func()) {
	// Recover from panics to keep the loop alive
	defer func() {
		if err := recover(); err != nil {
			d.logger.Error("dispatcher panic recovered", "error", err)
		}
	}()
	fn()
	d.updateGauges()
}

// post queues fn for the loop. It never blocks once the loop has stopped.
func (d *Dispatcher) post(fn func()) {
	select {
	case d.events <- fn:
	case <-d.done:
	}
}

// Call runs fn on the loop and waits for it to finish.
func (d *Dispatcher) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case d.events <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

func (d *Dispatcher) shutdown() {
	for token, p := range d.pending {
		p.cancel()
		delete(d.pending, token)
	}
	for _, rec := range append([]*registry.Record(nil), d.reg.Records()...) {
		rec.Release()
	}
}

func (d *Dispatcher) updateGauges() {
	views := 0
	for _, rec := range d.reg.Records() {
		views += rec.Views.Len()
	}
	d.metrics.Windows.Set(float64(d.reg.Len()))
	d.metrics.Views.Set(float64(views))
	d.metrics.Pending.Set(float64(len(d.pending)))
}

// Deliver queues an inbound UI request from origin.
func (d *Dispatcher) Deliver(origin platform.ContentID, msg Message) {
	d.post(func() { d.handle(origin, msg) })
}

// Ready opens the first window once the rendering shell is up.
func (d *Dispatcher) Ready() {
	d.post(func() {
		if _, err := d.openWindow("", ""); err != nil {
			d.logger.Error("failed to open window", "error", err)
		}
	})
}

// Activate opens a window when the shell is re-activated with none open,
// and otherwise raises the most recently opened one when the window ops
// support focusing.
func (d *Dispatcher) Activate() {
	d.post(func() {
		if records := d.reg.Records(); len(records) > 0 {
			if focuser, ok := d.ops.(platform.Focuser); ok {
				last := records[len(records)-1]
				if err := focuser.Focus(last.Window); err != nil {
					d.logger.Warn("failed to focus window", "window", last.ID(), "error", err)
				}
			}
			return
		}
		if _, err := d.openWindow("", ""); err != nil {
			d.logger.Error("failed to open window", "error", err)
		}
	})
}

// NotifyClosed queues a closed notification for a window whose native
// window disappeared without the host reporting it.
func (d *Dispatcher) NotifyClosed(window platform.ContentID) {
	d.post(func() { d.onWindowEvent(window, platform.WindowClosed) })
}

func (d *Dispatcher) sendSnapshot(rec *registry.Record) {
	snap := rec.Views.Snapshot(d.locate)
	if err := rec.Window.Send(ChanGetViewsReturn, snap.Tabs, snap.ActiveViewID); err != nil {
		d.logger.Warn("failed to send tab list", "window", rec.ID(), "error", err)
		return
	}
	d.metrics.Snapshots.Inc()
}
