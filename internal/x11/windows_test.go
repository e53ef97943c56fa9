package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestConnectionCloseMethods(t *testing.T) {
	// Disconnecting and closing a client window are distinct operations.
	var disconnect func(*Connection) = (*Connection).Close
	var closeWindow func(*Connection, xproto.Window) error = (*Connection).CloseWindow
	if disconnect == nil || closeWindow == nil {
		t.Fatalf("expected both close methods")
	}
}
