package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tabhost/internal/dispatch"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{
		Windows:         st.Windows,
		Tabs:            st.Views,
		PendingRemovals: st.PendingRemovals,
		ShellConnected:  st.ShellConnected,
		UptimeSeconds:   st.UptimeSeconds,
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	out := ListWindowsOutput{Windows: make([]WindowSummary, 0, len(windows))}
	for _, w := range windows {
		out.Windows = append(out.Windows, WindowSummary{
			Window:       string(w.ID),
			NativeID:     uint32(w.NativeID),
			TabCount:     len(w.Tabs),
			ActiveViewID: w.ActiveViewID,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListTabs(_ context.Context, _ *mcpsdk.CallToolRequest, args ListTabsInput) (*mcpsdk.CallToolResult, ListTabsOutput, error) {
	w, err := s.findWindow(args.Window)
	if err != nil {
		return nil, ListTabsOutput{}, err
	}
	return nil, ListTabsOutput{
		Window:       string(w.ID),
		Tabs:         w.Tabs,
		ActiveViewID: w.ActiveViewID,
	}, nil
}

func (s *Server) handleOpenWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenWindowInput) (*mcpsdk.CallToolResult, OpenWindowOutput, error) {
	query := strings.TrimPrefix(args.Query, "?")
	info, err := s.daemon.NewWindow(args.Path, query)
	if err != nil {
		return nil, OpenWindowOutput{}, err
	}
	s.logger.Info("mcp: opened window", "window", info.ID, "path", args.Path)
	return nil, OpenWindowOutput{
		Window:       string(info.ID),
		Tabs:         info.Tabs,
		ActiveViewID: info.ActiveViewID,
	}, nil
}

func (s *Server) handleSwitchTab(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchTabInput) (*mcpsdk.CallToolResult, SwitchTabOutput, error) {
	if args.ID == "" {
		return nil, SwitchTabOutput{}, fmt.Errorf("id is required")
	}
	w, err := s.findWindow(args.Window)
	if err != nil {
		return nil, SwitchTabOutput{}, err
	}
	if err := s.daemon.SwitchView(string(w.ID), args.ID); err != nil {
		return nil, SwitchTabOutput{}, err
	}
	return nil, SwitchTabOutput{Window: string(w.ID), ActiveViewID: args.ID}, nil
}

func (s *Server) handleCloseTab(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseTabInput) (*mcpsdk.CallToolResult, CloseTabOutput, error) {
	if args.ID == "" {
		return nil, CloseTabOutput{}, fmt.Errorf("id is required")
	}
	w, err := s.findWindow(args.Window)
	if err != nil {
		return nil, CloseTabOutput{}, err
	}
	pending, err := s.daemon.RemoveView(string(w.ID), args.ID)
	if err != nil {
		return nil, CloseTabOutput{}, err
	}
	s.logger.Info("mcp: close tab requested", "window", w.ID, "view", args.ID, "pending", pending)
	return nil, CloseTabOutput{
		Window:  string(w.ID),
		ID:      args.ID,
		Pending: pending,
		Closed:  !pending,
	}, nil
}

// findWindow returns the named window, or the only open window when name is
// empty.
func (s *Server) findWindow(name string) (dispatch.WindowInfo, error) {
	windows, err := s.daemon.ListWindows()
	if err != nil {
		return dispatch.WindowInfo{}, err
	}
	if name == "" {
		switch len(windows) {
		case 0:
			return dispatch.WindowInfo{}, fmt.Errorf("no windows are open")
		case 1:
			return windows[0], nil
		default:
			return dispatch.WindowInfo{}, fmt.Errorf("%d windows are open; pass window (see list_windows)", len(windows))
		}
	}
	for _, w := range windows {
		if string(w.ID) == name {
			return w, nil
		}
	}
	return dispatch.WindowInfo{}, fmt.Errorf("%w: %s", dispatch.ErrUnknownWindow, name)
}
