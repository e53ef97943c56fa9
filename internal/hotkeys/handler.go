// Package hotkeys binds global X11 key sequences to daemon actions.
package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/tabhost/internal/x11"
)

// Handler manages global keyboard shortcuts on its own X11 connection.
type Handler struct {
	conn   *x11.Connection
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler connects to display and prepares key grabbing.
func NewHandler(display string, logger *slog.Logger) (*Handler, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	keybind.Initialize(conn.XUtil)
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})

	return &Handler{
		conn:   conn,
		xu:     conn.XUtil,
		root:   conn.Root,
		logger: logger,
	}, nil
}

// RegisterFunc registers an arbitrary hotkey callback. Callbacks run on the
// X event goroutine and must not block.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		h.logger.Debug("hotkey triggered", "keys", keySequence)
		callback()
	}).Connect(h.xu, h.root, keySequence, true); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", keySequence, err)
	}
	h.logger.Info("hotkey registered", "keys", keySequence)
	return nil
}

// Run processes X events until ctx is cancelled, then closes the connection.
func (h *Handler) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		xevent.Quit(h.xu)
	}()
	xevent.Main(h.xu)
	h.conn.Close()
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
