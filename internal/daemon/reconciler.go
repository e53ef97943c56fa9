// Package daemon holds background maintenance loops that run next to the
// dispatcher.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/platform"
)

// WindowLister is a function that returns the native ids of live windows.
type WindowLister func() ([]platform.WindowID, error)

// Tracker is the dispatcher surface the reconciler needs.
type Tracker interface {
	Windows(ctx context.Context) ([]dispatch.WindowInfo, error)
	NotifyClosed(window platform.ContentID)
}

var _ Tracker = (*dispatch.Dispatcher)(nil)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically closes records whose native window disappeared
// without the shell reporting it.
type Reconciler struct {
	interval    time.Duration
	tracker     Tracker
	listWindows WindowLister
	logger      *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, tracker Tracker, listWindows WindowLister) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:    interval,
		tracker:     tracker,
		listWindows: listWindows,
		logger:      logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass and returns the windows
// it reported closed.
func (r *Reconciler) reconcile(ctx context.Context) (closed []platform.ContentID) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	expected, err := r.tracker.Windows(ctx)
	if err != nil {
		r.logger.Error("reconciler: failed to list tracked windows", "error", err)
		return nil
	}

	tracked := 0
	for _, w := range expected {
		if w.NativeID != 0 {
			tracked++
		}
	}
	if tracked == 0 {
		return nil
	}

	live, err := r.listWindows()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return nil
	}
	liveIDs := make(map[platform.WindowID]bool, len(live))
	for _, id := range live {
		liveIDs[id] = true
	}

	for _, w := range expected {
		// Windows the shell never mapped to a native id cannot be checked.
		if w.NativeID == 0 || liveIDs[w.NativeID] {
			continue
		}
		r.logger.Info("reconciler: stale window detected",
			"window", w.ID,
			"native_id", w.NativeID,
			"tabs", len(w.Tabs))
		r.tracker.NotifyClosed(w.ID)
		closed = append(closed, w.ID)
	}
	return closed
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) []platform.ContentID {
	return r.reconcile(ctx)
}
