package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/registry"
)

type fakeController struct {
	mu       sync.Mutex
	windows  []dispatch.WindowInfo
	switched []string
	removed  []string
	pending  bool
	opened   []string
}

func (f *fakeController) Status(ctx context.Context) (dispatch.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	views := 0
	for _, w := range f.windows {
		views += len(w.Tabs)
	}
	return dispatch.Status{Windows: len(f.windows), Views: views, PendingRemovals: 1}, nil
}

func (f *fakeController) Windows(ctx context.Context) ([]dispatch.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatch.WindowInfo(nil), f.windows...), nil
}

func (f *fakeController) OpenWindow(ctx context.Context, path, query string) (dispatch.WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, path+"?"+query)
	info := dispatch.WindowInfo{ID: "w9", Tabs: []registry.Tab{{ID: "t1", Loading: true, Path: strings.TrimPrefix(path, "/")}}, ActiveViewID: "t1"}
	f.windows = append(f.windows, info)
	return info, nil
}

func (f *fakeController) calls() (opened, switched, removed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...), append([]string(nil), f.switched...), append([]string(nil), f.removed...)
}

func (f *fakeController) find(window platform.ContentID, id string) error {
	for _, w := range f.windows {
		if w.ID != window {
			continue
		}
		for _, tab := range w.Tabs {
			if tab.ID == id {
				return nil
			}
		}
		return dispatch.ErrUnknownView
	}
	return dispatch.ErrUnknownWindow
}

func (f *fakeController) SwitchView(ctx context.Context, window platform.ContentID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.find(window, id); err != nil {
		return err
	}
	f.switched = append(f.switched, id)
	return nil
}

func (f *fakeController) RemoveView(ctx context.Context, window platform.ContentID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.find(window, id); err != nil {
		return false, err
	}
	f.removed = append(f.removed, id)
	return f.pending, nil
}

func startServer(t *testing.T, ctrl Controller, reload func(context.Context) error) *Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "tabhost.sock")
	srv, err := NewServer(ServerConfig{
		SocketPath:     socket,
		Controller:     ctrl,
		Reload:         reload,
		ShellConnected: func() bool { return true },
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(srv.SocketPath())
}

func TestServer_StatusAndWindows(t *testing.T) {
	ctrl := &fakeController{windows: []dispatch.WindowInfo{{
		ID:           "w1",
		Tabs:         []registry.Tab{{ID: "a", Path: "Home"}, {ID: "b", Path: "Docs"}},
		ActiveViewID: "b",
	}}}
	client := startServer(t, ctrl, nil)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Windows != 1 || status.Views != 2 || status.PendingRemovals != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if !status.DaemonRunning || !status.ShellConnected {
		t.Fatalf("expected running daemon with shell, got %+v", status)
	}

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows) != 1 || windows[0].ID != "w1" || windows[0].ActiveViewID != "b" {
		t.Fatalf("unexpected windows %+v", windows)
	}
	if len(windows[0].Tabs) != 2 || windows[0].Tabs[1].Path != "Docs" {
		t.Fatalf("unexpected tabs %+v", windows[0].Tabs)
	}

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestServer_NewWindow(t *testing.T) {
	ctrl := &fakeController{}
	client := startServer(t, ctrl, nil)

	info, err := client.NewWindow("/Docs", "x=1")
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	if info.ID != "w9" || info.ActiveViewID != "t1" {
		t.Fatalf("unexpected window %+v", info)
	}
	if opened, _, _ := ctrl.calls(); len(opened) != 1 || opened[0] != "/Docs?x=1" {
		t.Fatalf("controller saw %v", opened)
	}
}

func TestServer_SwitchAndRemoveView(t *testing.T) {
	ctrl := &fakeController{
		windows: []dispatch.WindowInfo{{ID: "w1", Tabs: []registry.Tab{{ID: "a"}, {ID: "b"}}}},
		pending: true,
	}
	client := startServer(t, ctrl, nil)

	if err := client.SwitchView("w1", "a"); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	pending, err := client.RemoveView("w1", "b")
	if err != nil {
		t.Fatalf("RemoveView: %v", err)
	}
	if !pending {
		t.Fatalf("expected pending removal")
	}
	if _, switched, removed := ctrl.calls(); len(switched) != 1 || len(removed) != 1 {
		t.Fatalf("controller saw switched=%v removed=%v", switched, removed)
	}

	err = client.SwitchView("w1", "zz")
	if err == nil || !strings.Contains(err.Error(), "unknown view") {
		t.Fatalf("expected unknown view error, got %v", err)
	}
	_, err = client.RemoveView("w7", "a")
	if err == nil || !strings.Contains(err.Error(), "unknown window") {
		t.Fatalf("expected unknown window error, got %v", err)
	}
	err = client.SwitchView("w1", "")
	if err == nil || !strings.Contains(err.Error(), "id is required") {
		t.Fatalf("expected payload validation error, got %v", err)
	}
}

func TestServer_Reload(t *testing.T) {
	var reloads atomic.Int32
	client := startServer(t, &fakeController{}, func(context.Context) error {
		if reloads.Add(1) > 1 {
			return errors.New("bad yaml")
		}
		return nil
	})

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	err := client.Reload()
	if err == nil || !strings.Contains(err.Error(), "bad yaml") {
		t.Fatalf("expected reload error, got %v", err)
	}
}

func TestServer_ReloadUnsupported(t *testing.T) {
	client := startServer(t, &fakeController{}, nil)
	if err := client.Reload(); err == nil {
		t.Fatalf("expected error when reload is not wired")
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	client := startServer(t, &fakeController{}, nil)
	_, err := client.sendRequest(&Request{Command: "BOGUS"})
	if err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("expected connection error, got %v", err)
	}
}
