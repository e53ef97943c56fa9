package mcp

import "github.com/1broseidon/tabhost/internal/registry"

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Windows         int   `json:"windows"`
	Tabs            int   `json:"tabs"`
	PendingRemovals int   `json:"pending_removals"`
	ShellConnected  bool  `json:"shell_connected"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowSummary describes one window without its tab details.
type WindowSummary struct {
	Window       string `json:"window"`
	NativeID     uint32 `json:"native_id,omitempty"`
	TabCount     int    `json:"tab_count"`
	ActiveViewID string `json:"active_view_id"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowSummary `json:"windows"`
}

// ListTabsInput is the input for the list_tabs tool.
type ListTabsInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window id from list_windows (default: the only open window)"`
}

// ListTabsOutput is the output for the list_tabs tool.
type ListTabsOutput struct {
	Window       string         `json:"window"`
	Tabs         []registry.Tab `json:"tabs"`
	ActiveViewID string         `json:"active_view_id"`
}

// OpenWindowInput is the input for the open_window tool.
type OpenWindowInput struct {
	Path  string `json:"path,omitempty" jsonschema:"App path to open (e.g. /Docs). Standalone paths load in the chrome; others open as the first tab."`
	Query string `json:"query,omitempty" jsonschema:"Query string without the leading ?"`
}

// OpenWindowOutput is the output for the open_window tool.
type OpenWindowOutput struct {
	Window       string         `json:"window"`
	Tabs         []registry.Tab `json:"tabs"`
	ActiveViewID string         `json:"active_view_id"`
}

// SwitchTabInput is the input for the switch_tab tool.
type SwitchTabInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window id from list_windows (default: the only open window)"`
	ID     string `json:"id" jsonschema:"required,Tab id to activate"`
}

// SwitchTabOutput is the output for the switch_tab tool.
type SwitchTabOutput struct {
	Window       string `json:"window"`
	ActiveViewID string `json:"active_view_id"`
}

// CloseTabInput is the input for the close_tab tool.
type CloseTabInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window id from list_windows (default: the only open window)"`
	ID     string `json:"id" jsonschema:"required,Tab id to close"`
}

// CloseTabOutput is the output for the close_tab tool.
type CloseTabOutput struct {
	Window string `json:"window"`
	ID     string `json:"id"`
	// Pending is set when the tab was still loading and the user has been
	// asked to confirm.
	Pending bool `json:"pending"`
	Closed  bool `json:"closed"`
}
