package dispatch

import (
	"context"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/prompt"
	"github.com/1broseidon/tabhost/internal/registry"
)

// pendingRemoval is a tab removal waiting on a confirmation result.
type pendingRemoval struct {
	window platform.ContentID
	viewID string
	cancel context.CancelFunc
}

// requestRemoval removes a tab, first asking for confirmation when the tab
// is still loading. The confirmation runs off the loop; its result comes
// back through completeRemoval.
func (d *Dispatcher) requestRemoval(rec *registry.Record, id string) uint64 {
	view, ok := rec.Views.Get(id)
	if !ok {
		d.metrics.Removals.WithLabelValues("unknown").Inc()
		d.sendSnapshot(rec)
		return 0
	}
	if !view.Loading || d.prompter == nil {
		d.commitRemoval(rec, id)
		return 0
	}

	d.nextToken++
	token := d.nextToken
	ctx, cancel := context.WithCancel(d.ctx)
	d.pending[token] = &pendingRemoval{window: rec.ID(), viewID: id, cancel: cancel}

	c := d.opts.Confirm
	c.Window = rec.ID()
	c.ViewID = id
	d.logger.Debug("confirming removal of loading view", "window", rec.ID(), "view", id, "token", token)

	go func() {
		choice, err := d.prompter.Confirm(ctx, c)
		d.post(func() { d.completeRemoval(token, choice, err) })
	}()
	return token
}

// completeRemoval commits a confirmed removal if the window and tab still
// exist. Anything else leaves state untouched.
func (d *Dispatcher) completeRemoval(token uint64, choice prompt.Choice, err error) {
	p, ok := d.pending[token]
	if !ok {
		return
	}
	delete(d.pending, token)
	p.cancel()

	if err != nil {
		d.metrics.Removals.WithLabelValues("error").Inc()
		d.logger.Warn("removal confirmation failed", "window", p.window, "view", p.viewID, "error", err)
		return
	}
	if choice != prompt.ForceClose {
		d.metrics.Removals.WithLabelValues("cancelled").Inc()
		d.logger.Debug("removal cancelled", "window", p.window, "view", p.viewID)
		return
	}

	rec, ok := d.reg.Lookup(p.window)
	if !ok || !rec.Views.Has(p.viewID) {
		d.metrics.Removals.WithLabelValues("gone").Inc()
		d.logger.Debug("confirmed removal target already gone", "window", p.window, "view", p.viewID)
		return
	}
	d.commitRemoval(rec, p.viewID)
}

func (d *Dispatcher) commitRemoval(rec *registry.Record, id string) {
	surface, err := rec.RemoveView(id)
	if err != nil {
		d.logger.Warn("view removal incomplete", "window", rec.ID(), "view", id, "error", err)
	}
	if surface != nil {
		rec.Untrack(surface.ContentID())
		surface.Destroy()
		d.metrics.Removals.WithLabelValues("removed").Inc()
	}
	d.sendSnapshot(rec)
}
