package stage

import (
	"context"
	"log/slog"

	"contentflow/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the per-item logger before Prepare runs.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// ProgressReporter lets long-running handlers persist intermediate progress.
type ProgressReporter func(ctx context.Context, item *queue.Item) error

// ProgressAware handlers are given a reporter by the workflow before Execute.
type ProgressAware interface {
	SetProgressReporter(ProgressReporter)
}

// Health is a stage's answer to HealthCheck. Detail explains a stage that
// is not Ready, for example a missing API key or binary.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health { return Health{Name: name, Ready: true} }

func Unhealthy(name, detail string) Health { return Health{Name: name, Detail: detail} }
