package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/runtimepath"
)

const requestTimeout = 5 * time.Second

// Controller is the daemon state the IPC server exposes. *dispatch.Dispatcher
// implements it.
type Controller interface {
	Status(ctx context.Context) (dispatch.Status, error)
	Windows(ctx context.Context) ([]dispatch.WindowInfo, error)
	OpenWindow(ctx context.Context, path, query string) (dispatch.WindowInfo, error)
	SwitchView(ctx context.Context, window platform.ContentID, id string) error
	RemoveView(ctx context.Context, window platform.ContentID, id string) (bool, error)
}

var _ Controller = (*dispatch.Dispatcher)(nil)

// ServerConfig wires a Server to the daemon.
type ServerConfig struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Controller Controller
	// Reload re-reads configuration and applies it. Nil disables RELOAD.
	Reload func(ctx context.Context) error
	// ShellConnected reports whether a rendering shell is attached.
	ShellConnected func() bool
	Logger         *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         Controller
	reload       func(ctx context.Context) error
	connected    func() bool
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctrl:       cfg.Controller,
		reload:     cfg.Reload,
		connected:  cfg.ShellConnected,
		logger:     logger,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection serves exactly one request per connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload(ctx)
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandListWindows:
		return s.handleListWindows(ctx)
	case CommandNewWindow:
		return s.handleNewWindow(ctx, req.Payload)
	case CommandSwitchView:
		return s.handleSwitchView(ctx, req.Payload)
	case CommandRemoveView:
		return s.handleRemoveView(ctx, req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload(ctx context.Context) *Response {
	s.logger.Info("IPC: received RELOAD")
	if s.reload == nil {
		return NewErrorResponse("reload is not supported")
	}
	if err := s.reload(ctx); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	s.logger.Info("IPC: config reloaded")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	st, err := s.ctrl.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}

	status := StatusData{
		Windows:         st.Windows,
		Views:           st.Views,
		PendingRemovals: st.PendingRemovals,
		UptimeSeconds:   int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:   true,
	}
	if s.connected != nil {
		status.ShellConnected = s.connected()
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListWindows(ctx context.Context) *Response {
	windows, err := s.ctrl.Windows(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list windows: %v", err))
	}

	resp, _ := NewOKResponse(WindowsData{Windows: windows})
	return resp
}

func (s *Server) handleNewWindow(ctx context.Context, payload json.RawMessage) *Response {
	var req NewWindowPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid new window payload: %v", err))
		}
	}

	info, err := s.ctrl.OpenWindow(ctx, req.Path, req.Query)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to open window: %v", err))
	}

	resp, _ := NewOKResponse(info)
	return resp
}

func parseViewPayload(payload json.RawMessage) (ViewPayload, error) {
	var req ViewPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, err
	}
	if req.Window == "" {
		return req, fmt.Errorf("window is required")
	}
	if req.ID == "" {
		return req, fmt.Errorf("id is required")
	}
	return req, nil
}

func (s *Server) handleSwitchView(ctx context.Context, payload json.RawMessage) *Response {
	req, err := parseViewPayload(payload)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid switch payload: %v", err))
	}

	if err := s.ctrl.SwitchView(ctx, platform.ContentID(req.Window), req.ID); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to switch view: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleRemoveView(ctx context.Context, payload json.RawMessage) *Response {
	req, err := parseViewPayload(payload)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid remove payload: %v", err))
	}

	pending, err := s.ctrl.RemoveView(ctx, platform.ContentID(req.Window), req.ID)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to remove view: %v", err))
	}

	resp, _ := NewOKResponse(RemoveViewData{Pending: pending})
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
