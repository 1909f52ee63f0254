package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"contentflow/internal/api"
	"contentflow/internal/config"
	"contentflow/internal/deps"
	"contentflow/internal/events"
	"contentflow/internal/logging"
	"contentflow/internal/metrics"
	"contentflow/internal/notifications"
	"contentflow/internal/preflight"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
	"contentflow/internal/staging"
	"contentflow/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	content    *api.ContentService
	publishing *api.PublishingService
	relays     *relay.Registry
	events     *events.Hub
	metrics    *metrics.Metrics
	notifier   notifications.Service
	logHub     *logging.StreamHub
	logPath    string

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
}

// Options carries the optional collaborators built by the process runner.
type Options struct {
	LogPath  string
	LogHub   *logging.StreamHub
	Events   *events.Hub
	Metrics  *metrics.Metrics
	Notifier notifications.Service
	Relays   *relay.Registry
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	APIBind      string
	EventClients int
	Dependencies []deps.Status
	Relays       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, opts Options) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	relays := opts.Relays
	if relays == nil {
		relays = relay.NewFromConfig(cfg, store, store, logger, relay.WithObserver(opts.Metrics.RelayObserver()))
	}

	publisher := wakingPublisher{workflow: wf}
	if opts.Events != nil {
		publisher.next = opts.Events
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		workflow:   wf,
		content:    api.NewContentService(store, publisher),
		publishing: api.NewPublishingService(store, relays, cfg.Publishing.MakeWebhookURL),
		relays:     relays,
		events:     opts.Events,
		metrics:    opts.Metrics,
		notifier:   notifier,
		logHub:     opts.LogHub,
		logPath:    opts.LogPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, resets items a previous run left in
// processing and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another contentflow daemon instance is already running")
	}

	if reset, err := d.store.ResetStuckProcessing(ctx); err != nil {
		d.logger.Warn("failed to reset interrupted items",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_reset_failed"),
			logging.String(logging.FieldErrorHint, "run contentflow resume on affected items"),
		)
	} else if reset > 0 {
		d.logger.Info("reset interrupted items",
			logging.Int64("reset_count", reset),
			logging.String(logging.FieldEventType, "queue_reset_stuck"),
		)
	}

	d.cleanOrphanedStaging(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("contentflow daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// cleanOrphanedStaging removes working directories left behind by items
// that were removed while the daemon was down.
func (d *Daemon) cleanOrphanedStaging(ctx context.Context) {
	ids, err := d.store.ActiveItemIDs(ctx)
	if err != nil {
		d.logger.Warn("skipping staging cleanup",
			logging.Error(err),
			logging.String(logging.FieldEventType, "staging_cleanup_failed"),
			logging.String(logging.FieldImpact, "orphaned artifacts remain on disk"),
		)
		return
	}
	result := staging.CleanOrphaned(ctx, d.cfg.Paths.StagingDir, ids, d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("cleaned orphaned staging directories",
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "staging_cleanup_summary"),
		)
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.String(logging.FieldImpact, "next start may report another instance running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("contentflow daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Content returns the item operations shared by HTTP and IPC.
func (d *Daemon) Content() *api.ContentService {
	return d.content
}

// Publishing returns relay configuration and ad-hoc posting.
func (d *Daemon) Publishing() *api.PublishingService {
	return d.publishing
}

// Relays returns the relay registry, used for LinkedIn OAuth.
func (d *Daemon) Relays() *relay.Registry {
	return d.relays
}

// Events returns the websocket hub, or nil when streaming is disabled.
func (d *Daemon) Events() *events.Hub {
	return d.events
}

// Metrics returns the Prometheus collectors, or nil.
func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

// LogStream returns the in-memory log hub.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// ResetStuck transitions in-flight items back to pending for retry.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	return d.store.ResetStuckProcessing(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	d.metrics.SetQueueDepth(summary.QueueStats)
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     summary,
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		APIBind:      d.cfg.Paths.APIBind,
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
		Relays:       preflight.CheckRelaysFromConfig(d.cfg),
	}
	if d.events != nil {
		status.EventClients = d.events.Clients()
	}
	return status
}

// DaemonStatus converts Status into the API payload.
func (s Status) DaemonStatus() api.DaemonStatus {
	payload := api.DaemonStatus{
		Running:      s.Running,
		PID:          s.PID,
		QueueDBPath:  s.QueueDBPath,
		LockFilePath: s.LockFilePath,
		APIBind:      s.APIBind,
		EventClients: s.EventClients,
		Workflow:     api.FromStatusSummary(s.Workflow),
		Dependencies: make([]api.DependencyStatus, 0, len(s.Dependencies)),
		Relays:       make([]api.RelayStatus, 0, len(s.Relays)),
	}
	for _, dep := range s.Dependencies {
		payload.Dependencies = append(payload.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	for _, result := range s.Relays {
		payload.Relays = append(payload.Relays, api.RelayStatus{Name: result.Name, Ready: result.Passed, Detail: result.Detail})
	}
	return payload
}

// wakingPublisher forwards item events and nudges the workflow lanes so
// API-driven changes are picked up without waiting for the next poll.
type wakingPublisher struct {
	next     events.Publisher
	workflow *workflow.Manager
}

func (p wakingPublisher) Publish(evt events.Event) {
	if p.next != nil {
		p.next.Publish(evt)
	}
	p.workflow.Wake()
}
