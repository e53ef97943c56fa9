package prompt

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// TerminalPrompter asks on the daemon's controlling terminal. Prompts are
// shown one at a time.
type TerminalPrompter struct {
	mu         sync.Mutex
	isTerminal func() bool
	ask        func(ctx context.Context, c Confirmation) (bool, error)
}

// NewTerminal returns a prompter that uses stdin/stdout.
func NewTerminal() *TerminalPrompter {
	return &TerminalPrompter{
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
		ask: askHuh,
	}
}

func (p *TerminalPrompter) Confirm(ctx context.Context, c Confirmation) (Choice, error) {
	if !p.isTerminal() {
		return Cancel, ErrNoTerminal
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Cancel, err
	}
	ok, err := p.ask(ctx, c)
	if err != nil {
		return Cancel, err
	}
	if ok {
		return ForceClose, nil
	}
	return Cancel, nil
}

func askHuh(ctx context.Context, c Confirmation) (bool, error) {
	var ok bool
	title := c.Title
	if c.ViewID != "" {
		title = fmt.Sprintf("%s (%s)", c.Title, c.ViewID)
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(c.Message).
				Affirmative(c.ConfirmLabel).
				Negative(c.CancelLabel).
				Value(&ok),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("terminal confirm: %w", err)
	}
	return ok, nil
}
