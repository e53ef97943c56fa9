// Package mcp exposes the daemon's windows and tabs as MCP tools. Every tool
// goes through the control socket, so the server runs as its own process.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/ipc"
)

const (
	ServerName    = "tabhost"
	ServerVersion = "0.1.0"
)

// Daemon is the control client the tools call. *ipc.Client implements it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]dispatch.WindowInfo, error)
	NewWindow(path, query string) (*dispatch.WindowInfo, error)
	SwitchView(window, id string) error
	RemoveView(window, id string) (bool, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for tabhost window automation.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates a new MCP server backed by the daemon control socket.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves one session on an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report how many windows and tabs the tabhost daemon manages, whether the rendering shell is connected, and how many tab closes await confirmation.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List open windows with their tab count and active tab id.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_tabs",
		Description: "List the tabs of a window in display order, with loading state, progress and the app path each tab shows.",
	}, s.handleListTabs)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_window",
		Description: "Open a new window. When path is a regular app path the window opens with one tab showing it.",
	}, s.handleOpenWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_tab",
		Description: "Make a tab the visible tab of its window.",
	}, s.handleSwitchTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_tab",
		Description: "Close a tab. A tab that is still loading asks the user for confirmation first; the result then reports pending=true and the tab stays open until they answer.",
	}, s.handleCloseTab)
}
