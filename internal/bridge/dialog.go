package bridge

import (
	"context"

	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/prompt"
)

var _ prompt.Dialoger = (*Bridge)(nil)

// ShowDialog raises a message box attached to window and waits for the
// shell to report the pressed button.
func (b *Bridge) ShowDialog(ctx context.Context, window platform.ContentID, d prompt.Dialog) (int, error) {
	ch := make(chan dialogResult, 1)

	b.mu.Lock()
	if b.conn == nil {
		b.mu.Unlock()
		return -1, ErrNotConnected
	}
	b.nextSeq++
	seq := b.nextSeq
	b.dialogs[seq] = ch
	b.mu.Unlock()

	if err := b.send(Command{Op: OpDialog, ID: window, Seq: seq, Dialog: &d}); err != nil {
		b.dropDialog(seq)
		return -1, err
	}

	select {
	case res := <-ch:
		return res.index, res.err
	case <-ctx.Done():
		b.dropDialog(seq)
		return -1, ctx.Err()
	}
}

func (b *Bridge) dropDialog(seq uint64) {
	b.mu.Lock()
	delete(b.dialogs, seq)
	b.mu.Unlock()
}

func (b *Bridge) resolveDialog(seq uint64, res dialogResult) {
	b.mu.Lock()
	ch, ok := b.dialogs[seq]
	delete(b.dialogs, seq)
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("result for unknown dialog", "seq", seq)
		return
	}
	ch <- res
}
