package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/1broseidon/tabhost/internal/bridge"
	"github.com/1broseidon/tabhost/internal/config"
	"github.com/1broseidon/tabhost/internal/daemon"
	"github.com/1broseidon/tabhost/internal/dispatch"
	"github.com/1broseidon/tabhost/internal/hotkeys"
	"github.com/1broseidon/tabhost/internal/ipc"
	"github.com/1broseidon/tabhost/internal/platform"
	"github.com/1broseidon/tabhost/internal/prompt"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tabhost daemon [--config PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Serve the shell bridge and control socket until interrupted.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("config", "", "Config file path (default: ~/.config/tabhost/config.yaml)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		"base_url", cfg.BaseURL(),
		"bridge", cfg.Bridge.Listen,
		"confirm", cfg.Confirm.Mode,
		"native_ops", cfg.NativeOps)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	br := bridge.New(bridge.Config{
		Path:           cfg.Bridge.Path,
		MetricsPath:    cfg.Bridge.MetricsPath,
		AllowedOrigins: cfg.Bridge.AllowedOrigins,
		Registry:       reg,
		Logger:         logger.With("component", "bridge"),
	})

	var prompter prompt.Prompter
	switch cfg.Confirm.Mode {
	case config.ConfirmTerminal:
		prompter = prompt.NewTerminal()
	default:
		prompter = prompt.NewDialog(br)
	}

	var (
		ops    platform.WindowOps = platform.HostOps{}
		lister daemon.WindowLister
	)
	if cfg.NativeOps == config.NativeOpsX11 {
		if cfg.XAuthority != "" {
			os.Setenv("XAUTHORITY", cfg.XAuthority)
		}
		x11Ops, err := platform.NewX11Ops(cfg.Display)
		if err != nil {
			logger.Warn("x11 window ops unavailable, using host ops", "error", err)
		} else {
			defer x11Ops.Disconnect()
			ops = x11Ops
			lister = x11Ops.LiveWindows
		}
	}

	opts, err := dispatch.OptionsFromConfig(cfg)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := dispatch.New(dispatch.Config{
		Host:     br,
		Ops:      ops,
		Prompter: prompter,
		Logger:   logger.With("component", "dispatch"),
		Metrics:  dispatch.NewMetrics(reg),
		Options:  opts,
		OnLastWindowClosed: func() {
			logger.Info("last window closed, shutting down")
			cancel()
		},
	})
	br.SetHandler(d)

	reload := func(ctx context.Context) error {
		res, err := loadConfig(*path)
		if err != nil {
			return err
		}
		opts, err := dispatch.OptionsFromConfig(res.Config)
		if err != nil {
			return err
		}
		level.Set(res.Config.SlogLevel())
		return d.Reconfigure(ctx, opts)
	}

	ipcServer, err := ipc.NewServer(ipc.ServerConfig{
		Controller:     d,
		Reload:         reload,
		ShellConnected: br.Connected,
		Logger:         logger.With("component", "ipc"),
	})
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	if lister != nil {
		reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
			Interval: cfg.ReconcileInterval,
			Logger:   logger.With("component", "reconciler"),
		}, d, lister)
		go reconciler.Run(ctx)
	}

	if cfg.NewWindowHotkey != "" {
		startHotkeys(ctx, cfg, d, logger.With("component", "hotkeys"))
	}

	var failed atomic.Bool
	bridgeErr := make(chan error, 1)
	go func() {
		bridgeErr <- br.ListenAndServe(ctx, cfg.Bridge.Listen)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-bridgeErr:
				if err != nil {
					logger.Error("bridge stopped", "error", err)
					failed.Store(true)
				}
				cancel()
				return
			case sig := <-sigCh:
				if sig == syscall.SIGHUP {
					logger.Info("received SIGHUP, reloading config")
					if err := reload(ctx); err != nil {
						logger.Error("config reload failed", "error", err)
					}
					continue
				}
				logger.Info("shutting down tabhost daemon", "signal", sig.String())
				cancel()
				return
			}
		}
	}()

	logger.Info("tabhost daemon started")
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("dispatcher stopped", "error", err)
		return 1
	}
	if failed.Load() {
		return 1
	}
	return 0
}

// startHotkeys binds the new-window hotkey. Failure only disables the hotkey.
func startHotkeys(ctx context.Context, cfg *config.Config, d *dispatch.Dispatcher, logger *slog.Logger) {
	h, err := hotkeys.NewHandler(cfg.Display, logger)
	if err != nil {
		logger.Warn("hotkeys unavailable", "error", err)
		return
	}
	err = h.RegisterFunc(cfg.NewWindowHotkey, func() {
		go func() {
			if _, err := d.OpenWindow(ctx, "", ""); err != nil {
				logger.Warn("hotkey failed to open window", "error", err)
			}
		}()
	})
	if err != nil {
		logger.Warn("failed to register new window hotkey", "error", err)
	}
	go h.Run(ctx)
}
