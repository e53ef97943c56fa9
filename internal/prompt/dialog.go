package prompt

import (
	"context"
	"fmt"

	"github.com/1broseidon/tabhost/internal/platform"
)

// Dialog is a modal message box with buttons in display order.
type Dialog struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Buttons  []string `json:"buttons"`
	CancelID int      `json:"cancelId"`
}

// Dialoger shows a Dialog attached to a window and returns the index of the
// pressed button.
type Dialoger interface {
	ShowDialog(ctx context.Context, window platform.ContentID, d Dialog) (int, error)
}

const confirmButton = 1

// DialogPrompter asks through a dialog raised by the rendering shell.
type DialogPrompter struct {
	dialoger Dialoger
}

// NewDialog returns a prompter backed by d.
func NewDialog(d Dialoger) *DialogPrompter {
	return &DialogPrompter{dialoger: d}
}

func (p *DialogPrompter) Confirm(ctx context.Context, c Confirmation) (Choice, error) {
	idx, err := p.dialoger.ShowDialog(ctx, c.Window, Dialog{
		Title:    c.Title,
		Message:  c.Message,
		Buttons:  []string{c.CancelLabel, c.ConfirmLabel},
		CancelID: 0,
	})
	if err != nil {
		return Cancel, fmt.Errorf("show dialog: %w", err)
	}
	if idx == confirmButton {
		return ForceClose, nil
	}
	return Cancel, nil
}
