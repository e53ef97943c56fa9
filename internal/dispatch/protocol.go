package dispatch

import (
	"encoding/json"
	"fmt"
)

// Inbound channels, sent by the window chrome or by tab content.
const (
	ChanCreateView     = "create-view"
	ChanRemoveView     = "remove-view"
	ChanSwitchView     = "switch-view"
	ChanGetViews       = "get-views"
	ChanUpdateView     = "update-view"
	ChanIsInBrowserWin = "isInBrowserWindow"
	ChanMinimize       = "minimize"
	ChanMaximize       = "maximize"
	ChanClose          = "close"
)

// channelLabel returns channel when it is a known inbound channel and
// "unknown" otherwise, keeping metric label values bounded.
func channelLabel(channel string) string {
	switch channel {
	case ChanCreateView, ChanRemoveView, ChanSwitchView, ChanGetViews, ChanUpdateView,
		ChanIsInBrowserWin, ChanMinimize, ChanMaximize, ChanClose:
		return channel
	}
	return "unknown"
}

// Outbound channels.
const (
	ChanGetViewsReturn    = "get-views-return"
	ChanIsInBrowserWinRet = "isInBrowserWindow-return"
	ChanFullScreenState   = "update-full-screen-state"
)

// Message is one inbound request with its positional arguments.
type Message struct {
	Channel string            `json:"channel"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

// ViewState is the argument of update-view.
type ViewState struct {
	Loading  bool     `json:"loading"`
	Progress *float64 `json:"progress,omitempty"`
}

// stringArg decodes args[i] as a string. Missing or null arguments decode to
// "".
func stringArg(args []json.RawMessage, i int) (string, error) {
	if i >= len(args) || len(args[i]) == 0 || string(args[i]) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", fmt.Errorf("argument %d: %w", i, err)
	}
	return s, nil
}

func viewStateArg(args []json.RawMessage, i int) (ViewState, error) {
	var st ViewState
	if i >= len(args) || len(args[i]) == 0 || string(args[i]) == "null" {
		return st, nil
	}
	if err := json.Unmarshal(args[i], &st); err != nil {
		return st, fmt.Errorf("argument %d: %w", i, err)
	}
	return st, nil
}
