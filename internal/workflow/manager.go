package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/events"
	"contentflow/internal/logging"
	"contentflow/internal/metrics"
	"contentflow/internal/notifications"
	"contentflow/internal/queue"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	notifier     notifications.Service
	metrics      *metrics.Metrics
	events       events.Publisher

	heartbeat *HeartbeatMonitor
	itemLogs  *ItemLogger

	lanes     map[queue.ProcessingLane]*laneState
	laneOrder []queue.ProcessingLane

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	queueActive bool
	queueStart  time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the ntfy service built from the config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// WithMetrics records stage outcomes and queue depth.
func WithMetrics(collectors *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = collectors
	}
}

// WithEvents publishes every item change to the event stream.
func WithEvents(publisher events.Publisher) ManagerOption {
	return func(m *Manager) {
		m.events = publisher
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		notifier:     notifications.NewService(cfg),
		pollInterval: poll,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		itemLogs: NewItemLogger(cfg),
		lanes:    make(map[queue.ProcessingLane]*laneState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
