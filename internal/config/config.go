package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfirmMode selects how a removal confirmation is shown.
type ConfirmMode string

const (
	ConfirmDialog   ConfirmMode = "dialog"   // Native dialog raised by the shell.
	ConfirmTerminal ConfirmMode = "terminal" // Prompt on the daemon's terminal.
)

// NativeOps selects how minimize/maximize/close reach the window.
type NativeOps string

const (
	NativeOpsHost NativeOps = "host"
	NativeOpsX11  NativeOps = "x11"
)

const (
	DefaultChromeHeight      = 46
	DefaultWindowWidth       = 1200
	DefaultWindowHeight      = 800
	DefaultStandalonePattern = `^/\?`
)

// AppConfig locates the UI bundle. DevServerURL wins over IndexHTML when set.
type AppConfig struct {
	DevServerURL string `yaml:"dev_server_url,omitempty"`
	IndexHTML    string `yaml:"index_html,omitempty"`
}

// WindowConfig is the geometry and chrome of new top-level windows.
type WindowConfig struct {
	Title         string `yaml:"title"`
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Frameless     bool   `yaml:"frameless"`
	TrafficLightX int    `yaml:"traffic_light_x"`
	TrafficLightY int    `yaml:"traffic_light_y"`
	OpenDevTools  bool   `yaml:"open_devtools"`
}

// BridgeConfig configures the websocket endpoint the rendering shell dials.
type BridgeConfig struct {
	Listen         string   `yaml:"listen"`
	Path           string   `yaml:"path"`
	MetricsPath    string   `yaml:"metrics_path"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// ConfirmConfig is the prompt shown before closing a tab that is still
// loading.
type ConfirmConfig struct {
	Mode         ConfirmMode `yaml:"mode"`
	Title        string      `yaml:"title"`
	Message      string      `yaml:"message"`
	CancelLabel  string      `yaml:"cancel_label"`
	ConfirmLabel string      `yaml:"confirm_label"`
}

// Config holds the application configuration.
type Config struct {
	Include           IncludeList   `yaml:"include,omitempty"`
	App               AppConfig     `yaml:"app"`
	ChromeHeight      int           `yaml:"chrome_height"`
	Window            WindowConfig  `yaml:"window"`
	StandalonePattern string        `yaml:"standalone_pattern"`
	Bridge            BridgeConfig  `yaml:"bridge"`
	Confirm           ConfirmConfig `yaml:"confirm"`
	NativeOps         NativeOps     `yaml:"native_ops"`
	Display           string        `yaml:"display,omitempty"`
	XAuthority        string        `yaml:"xauthority,omitempty"`
	NewWindowHotkey   string        `yaml:"new_window_hotkey,omitempty"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	QuitOnLastClose   bool          `yaml:"quit_on_last_close"`
	LogLevel          string        `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			DevServerURL: "http://localhost:5173",
		},
		ChromeHeight: DefaultChromeHeight,
		Window: WindowConfig{
			Title:         "tabhost",
			Width:         DefaultWindowWidth,
			Height:        DefaultWindowHeight,
			Frameless:     true,
			TrafficLightX: 10,
			TrafficLightY: 14,
		},
		StandalonePattern: DefaultStandalonePattern,
		Bridge: BridgeConfig{
			Listen:      "127.0.0.1:7423",
			Path:        "/shell",
			MetricsPath: "/metrics",
		},
		Confirm: ConfirmConfig{
			Mode:         ConfirmDialog,
			Title:        "Close tab",
			Message:      "This page is still loading. Close it anyway?",
			CancelLabel:  "Cancel",
			ConfirmLabel: "Close anyway",
		},
		NativeOps:         NativeOpsHost,
		ReconcileInterval: 10 * time.Second,
		QuitOnLastClose:   true,
		LogLevel:          "info",
	}
}

// BaseURL is the address tab and window paths are resolved against.
func (c *Config) BaseURL() string {
	if c.App.DevServerURL != "" {
		return strings.TrimSuffix(c.App.DevServerURL, "/")
	}
	return "file://" + filepath.ToSlash(c.App.IndexHTML)
}

// Standalone compiles StandalonePattern.
func (c *Config) Standalone() (*regexp.Regexp, error) {
	return regexp.Compile(c.StandalonePattern)
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	save := *c
	save.Include = nil

	data, err := yaml.Marshal(&save)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Source.Kind == SourceEnv && e.Source.Name != "" {
		return fmt.Sprintf("$%s: %s: %v", e.Source.Name, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks if the configuration is usable by the daemon.
func (c *Config) Validate() error {
	if c.App.DevServerURL == "" && c.App.IndexHTML == "" {
		return &ValidationError{Path: "app", Err: fmt.Errorf("one of dev_server_url or index_html is required")}
	}
	if c.App.DevServerURL != "" {
		u, err := url.Parse(c.App.DevServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Path: "app.dev_server_url", Err: fmt.Errorf("must be an absolute URL")}
		}
	}
	if c.ChromeHeight < 0 {
		return &ValidationError{Path: "chrome_height", Err: fmt.Errorf("chrome_height must be >= 0")}
	}
	if c.Window.Width <= 0 {
		return &ValidationError{Path: "window.width", Err: fmt.Errorf("width must be > 0")}
	}
	if c.Window.Height <= c.ChromeHeight {
		return &ValidationError{Path: "window.height", Err: fmt.Errorf("height must be greater than chrome_height (%d)", c.ChromeHeight)}
	}
	if _, err := c.Standalone(); err != nil {
		return &ValidationError{Path: "standalone_pattern", Err: err}
	}
	if strings.TrimSpace(c.Bridge.Listen) == "" {
		return &ValidationError{Path: "bridge.listen", Err: fmt.Errorf("listen address is required")}
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		return &ValidationError{Path: "bridge.path", Err: fmt.Errorf("path must start with /")}
	}
	if c.Bridge.MetricsPath != "" {
		if !strings.HasPrefix(c.Bridge.MetricsPath, "/") {
			return &ValidationError{Path: "bridge.metrics_path", Err: fmt.Errorf("path must start with /")}
		}
		if c.Bridge.MetricsPath == c.Bridge.Path {
			return &ValidationError{Path: "bridge.metrics_path", Err: fmt.Errorf("must differ from bridge.path")}
		}
	}
	switch c.Confirm.Mode {
	case ConfirmDialog, ConfirmTerminal:
	default:
		return &ValidationError{Path: "confirm.mode", Err: fmt.Errorf("mode must be one of: dialog, terminal")}
	}
	if c.Confirm.CancelLabel == "" || c.Confirm.ConfirmLabel == "" {
		return &ValidationError{Path: "confirm", Err: fmt.Errorf("cancel_label and confirm_label are required")}
	}
	switch c.NativeOps {
	case NativeOpsHost, NativeOpsX11:
	default:
		return &ValidationError{Path: "native_ops", Err: fmt.Errorf("native_ops must be one of: host, x11")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	if c.LogLevel != "" && c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	return nil
}
