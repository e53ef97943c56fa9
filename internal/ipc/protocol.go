package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/tabhost/internal/dispatch"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandNewWindow   CommandType = "NEW_WINDOW"
	CommandSwitchView  CommandType = "SWITCH_VIEW"
	CommandRemoveView  CommandType = "REMOVE_VIEW"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Windows         int   `json:"windows"`
	Views           int   `json:"views"`
	PendingRemovals int   `json:"pending_removals"`
	ShellConnected  bool  `json:"shell_connected"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
	DaemonRunning   bool  `json:"daemon_running"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []dispatch.WindowInfo `json:"windows"`
}

// NewWindowPayload represents the payload for NEW_WINDOW
type NewWindowPayload struct {
	Path  string `json:"path,omitempty"`
	Query string `json:"query,omitempty"`
}

// ViewPayload addresses one tab for SWITCH_VIEW and REMOVE_VIEW
type ViewPayload struct {
	Window string `json:"window"`
	ID     string `json:"id"`
}

// RemoveViewData represents the data returned by REMOVE_VIEW. Pending is set
// when the tab was still loading and a confirmation is outstanding.
type RemoveViewData struct {
	Pending bool `json:"pending"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
