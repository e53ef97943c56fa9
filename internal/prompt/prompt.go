// Package prompt asks the user whether a tab that is still loading should be
// closed anyway.
package prompt

import (
	"context"
	"errors"

	"github.com/1broseidon/tabhost/internal/platform"
)

// Choice is the answer to a Confirmation.
type Choice int

const (
	Cancel Choice = iota
	ForceClose
)

func (c Choice) String() string {
	if c == ForceClose {
		return "force-close"
	}
	return "cancel"
}

// Confirmation describes one pending tab removal.
type Confirmation struct {
	Window       platform.ContentID
	ViewID       string
	Title        string
	Message      string
	CancelLabel  string
	ConfirmLabel string
}

// Prompter resolves a Confirmation. Implementations may block for as long
// as the user takes; they must return when ctx is done.
type Prompter interface {
	Confirm(ctx context.Context, c Confirmation) (Choice, error)
}

// ErrNoTerminal is returned by Terminal when stdin is not a TTY.
var ErrNoTerminal = errors.New("confirmation requires an interactive terminal")
