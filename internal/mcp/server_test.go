package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/ipc"
	"github.com/1broseidon/tabhost/internal/registry"
)

type fakeDaemon struct {
	windows  []dispatch.WindowInfo
	pending  bool
	switched []string
	removed  []string
	opened   []string
	err      error
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	views := 0
	for _, w := range f.windows {
		views += len(w.Tabs)
	}
	return &ipc.StatusData{Windows: len(f.windows), Views: views, ShellConnected: true, DaemonRunning: true}, nil
}

func (f *fakeDaemon) ListWindows() ([]dispatch.WindowInfo, error) {
	return f.windows, f.err
}

func (f *fakeDaemon) NewWindow(path, query string) (*dispatch.WindowInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opened = append(f.opened, path+"|"+query)
	return &dispatch.WindowInfo{ID: "w5", Tabs: []registry.Tab{{ID: "n1", Loading: true, Path: "Docs"}}, ActiveViewID: "n1"}, nil
}

func (f *fakeDaemon) SwitchView(window, id string) error {
	f.switched = append(f.switched, window+"/"+id)
	return f.err
}

func (f *fakeDaemon) RemoveView(window, id string) (bool, error) {
	f.removed = append(f.removed, window+"/"+id)
	return f.pending, f.err
}

func newTestServer(d *fakeDaemon) *Server {
	return NewServer(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func oneWindow() []dispatch.WindowInfo {
	return []dispatch.WindowInfo{{
		ID:           "w1",
		NativeID:     0x400001,
		Tabs:         []registry.Tab{{ID: "a", Path: "Home"}, {ID: "b", Loading: true, Path: "Docs"}},
		ActiveViewID: "b",
	}}
}

func TestHandleListWindows(t *testing.T) {
	s := newTestServer(&fakeDaemon{windows: oneWindow()})

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	if len(out.Windows) != 1 {
		t.Fatalf("expected 1 window, got %+v", out.Windows)
	}
	got := out.Windows[0]
	if got.Window != "w1" || got.TabCount != 2 || got.ActiveViewID != "b" || got.NativeID != 0x400001 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestHandleListTabs_DefaultsToOnlyWindow(t *testing.T) {
	s := newTestServer(&fakeDaemon{windows: oneWindow()})

	_, out, err := s.handleListTabs(context.Background(), nil, ListTabsInput{})
	if err != nil {
		t.Fatalf("handleListTabs: %v", err)
	}
	if out.Window != "w1" || out.ActiveViewID != "b" || len(out.Tabs) != 2 || out.Tabs[0].Path != "Home" {
		t.Fatalf("unexpected tabs %+v", out)
	}
}

func TestFindWindow(t *testing.T) {
	two := append(oneWindow(), dispatch.WindowInfo{ID: "w2"})
	tests := []struct {
		name    string
		windows []dispatch.WindowInfo
		arg     string
		want    string
		wantErr string
	}{
		{"none open", nil, "", "", "no windows are open"},
		{"only window", oneWindow(), "", "w1", ""},
		{"ambiguous", two, "", "", "2 windows are open"},
		{"named", two, "w2", "w2", ""},
		{"unknown", two, "w9", "", "unknown window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeDaemon{windows: tt.windows})
			got, err := s.findWindow(tt.arg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("findWindow(%q) error = %v, want %q", tt.arg, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("findWindow(%q): %v", tt.arg, err)
			}
			if string(got.ID) != tt.want {
				t.Fatalf("findWindow(%q) = %s, want %s", tt.arg, got.ID, tt.want)
			}
		})
	}
}

func TestHandleSwitchTab(t *testing.T) {
	d := &fakeDaemon{windows: oneWindow()}
	s := newTestServer(d)

	_, out, err := s.handleSwitchTab(context.Background(), nil, SwitchTabInput{ID: "a"})
	if err != nil {
		t.Fatalf("handleSwitchTab: %v", err)
	}
	if out.Window != "w1" || out.ActiveViewID != "a" {
		t.Fatalf("unexpected output %+v", out)
	}
	if !slices.Equal(d.switched, []string{"w1/a"}) {
		t.Fatalf("daemon saw %v", d.switched)
	}

	if _, _, err := s.handleSwitchTab(context.Background(), nil, SwitchTabInput{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestHandleCloseTab(t *testing.T) {
	d := &fakeDaemon{windows: oneWindow(), pending: true}
	s := newTestServer(d)

	_, out, err := s.handleCloseTab(context.Background(), nil, CloseTabInput{Window: "w1", ID: "b"})
	if err != nil {
		t.Fatalf("handleCloseTab: %v", err)
	}
	if !out.Pending || out.Closed {
		t.Fatalf("expected pending close, got %+v", out)
	}

	d.pending = false
	_, out, err = s.handleCloseTab(context.Background(), nil, CloseTabInput{Window: "w1", ID: "a"})
	if err != nil {
		t.Fatalf("handleCloseTab: %v", err)
	}
	if out.Pending || !out.Closed {
		t.Fatalf("expected immediate close, got %+v", out)
	}
	if !slices.Equal(d.removed, []string{"w1/b", "w1/a"}) {
		t.Fatalf("daemon saw %v", d.removed)
	}
}

func TestHandleOpenWindow(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(d)

	_, out, err := s.handleOpenWindow(context.Background(), nil, OpenWindowInput{Path: "/Docs", Query: "?x=1"})
	if err != nil {
		t.Fatalf("handleOpenWindow: %v", err)
	}
	if out.Window != "w5" || out.ActiveViewID != "n1" {
		t.Fatalf("unexpected output %+v", out)
	}
	if !slices.Equal(d.opened, []string{"/Docs|x=1"}) {
		t.Fatalf("daemon saw %v", d.opened)
	}
}

func TestHandleGetStatus_DaemonDown(t *testing.T) {
	s := newTestServer(&fakeDaemon{err: errors.New("failed to connect to daemon")})
	if _, _, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{}); err == nil {
		t.Fatalf("expected error when daemon is down")
	}
}

func TestServer_ToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(&fakeDaemon{windows: oneWindow()})

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{"close_tab", "get_status", "list_tabs", "list_windows", "open_window", "switch_tab"}
	if !slices.Equal(names, want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: "list_tabs", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("list_tabs returned a tool error: %+v", res.Content)
	}
}
