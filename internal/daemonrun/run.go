package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"contentflow/internal/config"
	"contentflow/internal/daemon"
	"contentflow/internal/deps"
	"contentflow/internal/events"
	"contentflow/internal/ipc"
	"contentflow/internal/logging"
	"contentflow/internal/metrics"
	"contentflow/internal/notifications"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
	"contentflow/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	SocketPath  string
}

// Run starts the contentflow daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("contentflow-%s.log", runID))
	logHub := logging.NewStreamHub(4096)

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	currentLog := filepath.Join(cfg.Paths.LogDir, "contentflow.log")
	if err := ensureCurrentLogPointer(currentLog, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update contentflow.log link: %v\n", err)
	}
	retention := logging.RetentionAge(cfg.Logging.RetentionDays)
	logging.PruneLogs(logger, cfg.Paths.LogDir, "contentflow-*.log", retention, logPath, currentLog)
	logging.PruneLogs(logger, filepath.Join(cfg.Paths.LogDir, "items"), "item-*.log", retention)
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	collectors := metrics.New()
	hub := events.NewHub(logger, events.WithObserver(collectors))
	registry := relay.NewFromConfig(cfg, store, store, logger, relay.WithObserver(collectors.RelayObserver()))
	notifier := notifications.NewService(cfg)

	workflowManager := workflow.NewManager(cfg, store, logger,
		workflow.WithNotifier(notifier),
		workflow.WithMetrics(collectors),
		workflow.WithEvents(hub),
	)
	workflowManager.ConfigureStages(BuildStages(cfg, registry, logger))

	d, err := daemon.New(cfg, store, logger, workflowManager, daemon.Options{
		LogPath:  currentLog,
		LogHub:   logHub,
		Events:   hub,
		Metrics:  collectors,
		Notifier: notifier,
		Relays:   registry,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := opts.SocketPath
	if strings.TrimSpace(socketPath) == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		hub.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return d.ServeAPI(groupCtx)
	})
	err = group.Wait()
	logger.Info("contentflow daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	if err != nil && signalCtx.Err() == nil {
		return err
	}
	return nil
}

func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := deps.CheckFFmpeg(cfg.Video.FFmpegBinary)
	speech := deps.CheckSpeech(cfg.Speech.Binary)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("openai_key_present", cfg.OpenAIConfigured()),
		logging.String("llm_model", cfg.LLM.Model),
		logging.Bool("ffmpeg_available", ffmpeg.Available),
		logging.String("ffmpeg_binary", ffmpeg.Command),
		logging.Bool("speech_available", speech.Available),
		logging.String("speech_binary", speech.Command),
		logging.Bool("make_webhook_configured", strings.TrimSpace(cfg.Publishing.MakeWebhookURL) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
}
