package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. TABHOST_LOG_LEVEL.
const EnvPrefix = "TABHOST"

// envOverrides are applied after the config file. Nil means unset.
type envOverrides struct {
	DevServerURL      *string        `envconfig:"DEV_SERVER_URL"`
	IndexHTML         *string        `envconfig:"INDEX_HTML"`
	BridgeListen      *string        `envconfig:"BRIDGE_LISTEN"`
	ConfirmMode       *string        `envconfig:"CONFIRM_MODE"`
	NativeOps         *string        `envconfig:"NATIVE_OPS"`
	Display           *string        `envconfig:"DISPLAY"`
	NewWindowHotkey   *string        `envconfig:"NEW_WINDOW_HOTKEY"`
	ReconcileInterval *time.Duration `envconfig:"RECONCILE_INTERVAL"`
	QuitOnLastClose   *bool          `envconfig:"QUIT_ON_LAST_CLOSE"`
	LogLevel          *string        `envconfig:"LOG_LEVEL"`
}

func applyEnv(cfg *Config) (map[string]Source, error) {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	sources := map[string]Source{}
	set := func(path, name string) {
		sources[path] = Source{Kind: SourceEnv, Name: EnvPrefix + "_" + name}
	}

	if env.DevServerURL != nil {
		cfg.App.DevServerURL = *env.DevServerURL
		set("app.dev_server_url", "DEV_SERVER_URL")
	}
	if env.IndexHTML != nil {
		cfg.App.IndexHTML = *env.IndexHTML
		set("app.index_html", "INDEX_HTML")
	}
	if env.BridgeListen != nil {
		cfg.Bridge.Listen = *env.BridgeListen
		set("bridge.listen", "BRIDGE_LISTEN")
	}
	if env.ConfirmMode != nil {
		cfg.Confirm.Mode = ConfirmMode(*env.ConfirmMode)
		set("confirm.mode", "CONFIRM_MODE")
	}
	if env.NativeOps != nil {
		cfg.NativeOps = NativeOps(*env.NativeOps)
		set("native_ops", "NATIVE_OPS")
	}
	if env.Display != nil {
		cfg.Display = *env.Display
		set("display", "DISPLAY")
	}
	if env.NewWindowHotkey != nil {
		cfg.NewWindowHotkey = *env.NewWindowHotkey
		set("new_window_hotkey", "NEW_WINDOW_HOTKEY")
	}
	if env.ReconcileInterval != nil {
		cfg.ReconcileInterval = *env.ReconcileInterval
		set("reconcile_interval", "RECONCILE_INTERVAL")
	}
	if env.QuitOnLastClose != nil {
		cfg.QuitOnLastClose = *env.QuitOnLastClose
		set("quit_on_last_close", "QUIT_ON_LAST_CLOSE")
	}
	if env.LogLevel != nil {
		cfg.LogLevel = *env.LogLevel
		set("log_level", "LOG_LEVEL")
	}
	return sources, nil
}
