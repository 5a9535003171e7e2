package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/config"
	"github.com/1broseidon/screenward/internal/hotkeys"
	"github.com/1broseidon/screenward/internal/ipc"
	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
	"github.com/1broseidon/screenward/internal/runtimepath"
	"github.com/1broseidon/screenward/internal/service"
	"github.com/1broseidon/screenward/internal/window"
)

func newDaemonCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the screenward service in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), g)
		},
	}
}

func loadConfig(g *globals) (*config.LoadResult, error) {
	path := g.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.LoadFromPath(path)
}

// newLogger builds the daemon logger from config. console adds the
// human readable stderr writer.
func newLogger(cfg *config.Config, console bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := []logging.Option{logging.WithLevel(level)}
	if console {
		opts = append(opts, logging.WithConsole())
	}
	if cfg.LogFile != "" {
		opts = append(opts, logging.WithFile(cfg.LogFile))
	}
	return logging.New(opts...)
}

func settleFrom(cfg *config.Config) window.Settle {
	return window.Settle{
		Move:             cfg.Settle.Move,
		PreFullscreen:    cfg.Settle.PreFullscreen,
		FullscreenWait:   cfg.Settle.FullscreenWait,
		FullscreenVerify: cfg.Settle.FullscreenVerify,
		ToggleOff:        cfg.Settle.ToggleOff,
		FocusAttempt:     cfg.Settle.FocusAttempt,
		FocusRetry:       cfg.Settle.FocusRetry,
		KeyHold:          cfg.Settle.KeyHold,
		FocusAttempts:    cfg.FocusAttempts,
	}
}

// startApplyHotkey binds keys to ApplyRulesNow. Failures only log; the
// daemon stays useful without the shortcut.
func startApplyHotkey(ctx context.Context, keys string, backend platform.Backend, svc *service.Service, log *logging.Logger) {
	h, err := hotkeys.NewHandler(backend, log)
	if err != nil {
		log.Warn("apply hotkey disabled", "error", err.Error())
		return
	}
	press := hotkeys.ApplyBinding(func() error {
		summary, err := svc.ApplyRulesNow()
		if err == nil {
			log.Info("applied rules from hotkey", "applied", summary.Applied, "failed", summary.Failed)
		}
		return err
	}, log)
	if err := h.Register(keys, press); err != nil {
		log.Warn("apply hotkey disabled", "error", err.Error())
		return
	}
	go h.Run(ctx)
}

func runDaemon(ctx context.Context, g *globals) error {
	res, err := loadConfig(g)
	if err != nil {
		return err
	}
	cfg := res.Config

	log, err := newLogger(cfg, cfg.LogConsole)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer log.Close()
	log.Info("configuration loaded", "path", res.Path, "layouts_dir", cfg.LayoutsDir)

	if runtime.GOOS == "linux" {
		display, err := cfg.EnsureX11Env()
		if err != nil {
			return err
		}
		log.Info("using X display", "display", display)
	}

	socket := g.socket
	if socket == "" {
		if socket, err = runtimepath.SocketPath(); err != nil {
			return fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	if ipc.NewClientAt(socket).Ping() {
		return errors.New("another screenward daemon is already running")
	}

	backend, err := platform.New()
	if err != nil {
		return fmt.Errorf("failed to connect to window system: %w", err)
	}
	defer backend.Close()

	store, err := monitor.OpenStore(cfg.MonitorsFile, log)
	if err != nil {
		return err
	}
	monitors := monitor.NewManager(store, backend, log)
	layouts, err := layout.NewManager(cfg.LayoutsDir, layout.NewMatcher(monitors, log), log)
	if err != nil {
		return err
	}
	windows := window.NewManager(backend, monitors, layouts, window.Options{
		Settle: settleFrom(cfg),
		Logger: log,
	})

	svc, err := service.New(service.Deps{
		Config:   cfg,
		Monitors: monitors,
		Layouts:  layouts,
		Windows:  windows,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	srv, err := ipc.NewServer(socket, svc, log)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	log.Info("screenward daemon started", "socket", socket)

	if cfg.ApplyHotkey != "" {
		startApplyHotkey(ctx, cfg.ApplyHotkey, backend, svc, log)
	}

	<-ctx.Done()
	log.Info("shutting down")
	if err := svc.Stop(); err != nil && !errors.Is(err, service.ErrNotRunning) {
		log.Error("service did not stop cleanly", err)
		return err
	}
	return nil
}
