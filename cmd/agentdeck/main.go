package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agentdeck/agentdeck/internal/api"
	"github.com/agentdeck/agentdeck/internal/config"
	"github.com/agentdeck/agentdeck/internal/executor"
	"github.com/agentdeck/agentdeck/internal/notify"
	"github.com/agentdeck/agentdeck/internal/osched"
	"github.com/agentdeck/agentdeck/internal/service"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/internal/stream"
	"github.com/agentdeck/agentdeck/internal/version"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "version", "--version", "-v":
		fmt.Println(version.Info())
	case "help", "--help", "-h", "":
		printHelp()
	case "serve":
		exitOnError(runServe(os.Args[2:]))
	case "daemon":
		exitOnError(runDaemon())
	case "run":
		if len(os.Args) < 3 {
			exitOnError(fmt.Errorf("usage: agentdeck run <task-id>"))
		}
		exitOnError(runTask(os.Args[2]))
	case "fixpaths":
		exitOnError(runFixPaths())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired subsystems every command shares.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *store.Store
	scripts osched.ScriptBuilder
	adapter osched.Adapter
	svc     *service.Service
}

func buildApp() (*app, error) {
	cfg, err := config.Load(os.Getenv("AGENTDECK_CONFIG_DIR"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	st := store.New(cfg.DataDir, logger)
	scripts := osched.ScriptBuilder{Layout: st.Layout(), AgentBinary: cfg.Agent.Binary}
	adapter := osched.New(scripts, logger)
	exec := executor.New(st, adapter, scripts, logger)
	svc := service.New(st, adapter, scripts, exec, buildNotifier(cfg, logger), logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		scripts: scripts,
		adapter: adapter,
		svc:     svc,
	}, nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("AGENTDECK_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildNotifier(cfg config.Config, logger *zap.Logger) *notify.Dispatcher {
	var telegram, slack notify.Sender
	if cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
		if err != nil {
			logger.Warn("telegram sender unavailable", zap.Error(err))
		} else {
			telegram = tg
		}
	}
	if cfg.Notify.Slack.WebhookURL != "" {
		slack = notify.NewSlack(cfg.Notify.Slack.WebhookURL)
	}
	if telegram == nil && slack == nil {
		return nil
	}
	return notify.NewDispatcher(telegram, slack, logger)
}

func runServe(args []string) error {
	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := serveCmd.String("addr", "", "listen address (overrides config)")
	_ = serveCmd.Parse(args)

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	listenAddr := a.cfg.API.Addr
	if *addr != "" {
		listenAddr = *addr
	}

	streams := stream.NewManager(a.store.Layout(), a.cfg.Stream.PollInterval, a.logger)
	server := api.NewServer(a.svc, streams, a.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.svc.WatchCompletions(ctx, a.cfg.Notify.PollInterval)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: server.Router(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("server error", zap.Error(err))
		}
	}()
	a.logger.Info("API server started",
		zap.String("addr", listenAddr),
		zap.String("data_dir", a.cfg.DataDir))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// runDaemon drives every stored schedule from the in-process fallback
// timer. It exists for hosts without a usable native scheduler; with
// launchd or systemd available the daemon is unnecessary.
func runDaemon() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	pidPath := filepath.Join(a.cfg.DataDir, "daemon.pid")
	if pid, running := isDaemonRunning(pidPath); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	fb := osched.NewFallback(a.scripts, a.logger)
	tasks, err := a.store.List()
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	for _, t := range tasks {
		if _, err := fb.Install(t); err != nil {
			a.logger.Warn("skipping unschedulable task",
				zap.String("id", t.ID), zap.Error(err))
		}
	}
	fb.Start()
	defer fb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.svc.WatchCompletions(ctx, a.cfg.Notify.PollInterval)

	a.logger.Info("daemon started",
		zap.Int("pid", os.Getpid()),
		zap.Int("tasks", len(tasks)),
		zap.String("data_dir", a.cfg.DataDir))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutting down")
	return nil
}

func runTask(id string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	res := a.svc.RunNow(id)
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	fmt.Printf("Task %s started\n", id)
	return nil
}

func runFixPaths() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	res := a.svc.FixPaths()
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	fmt.Println("Installed job definitions updated")
	return nil
}

// isDaemonRunning reads the PID file and probes the process.
func isDaemonRunning(pidPath string) (int, bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// On Unix FindProcess always succeeds; signal 0 probes liveness.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

func printHelp() {
	fmt.Println(`agentdeck - recurring task scheduler for coding agents

Usage:
  agentdeck serve [--addr HOST:PORT]   Start the HTTP API server
  agentdeck daemon                     Run schedules on an in-process timer
  agentdeck run <task-id>              Fire a task immediately
  agentdeck fixpaths                   Repair paths in installed job definitions
  agentdeck version                    Print version information
  agentdeck help                       Show this help

Environment:
  AGENTDECK_CONFIG_DIR   Directory containing config.yaml
  AGENTDECK_DATA_DIR     Override the data directory
  AGENTDECK_DEBUG        Enable verbose logging`)
}
