package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contentflow/internal/api"
	"contentflow/internal/ipc"
	"contentflow/internal/logs"
)

var ErrFiltersRequireAPI = errors.New("log filters require API access")

// TailClient captures the IPC log tail contract used for fallback streaming.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Filters narrows the stream. Everything except Match is applied by the
// HTTP API; Match also works when tailing the log file.
type Filters struct {
	Component string
	Stage     string
	Platform  string
	ItemID    int64
	Match     string
}

func (f Filters) needsAPI() bool {
	return f.ItemID != 0 || strings.TrimSpace(f.Component+f.Stage+f.Platform) != ""
}

// Options controls stream behavior.
type Options struct {
	Lines   int
	Follow  bool
	Filters Filters
}

// Stream emits structured events from the API when it is reachable, falling
// back to tailing the log file over IPC. It returns true when at least one
// line or event was emitted.
func Stream(
	ctx context.Context,
	apiClient *logs.StreamClient,
	fallback TailClient,
	opts Options,
	onEvent func(api.LogEvent),
	onLine func(string),
) (bool, error) {
	printed, err := streamAPI(ctx, apiClient, opts, onEvent)
	if err == nil {
		return printed, nil
	}
	if !logs.IsAPIUnavailable(err) {
		return printed, err
	}
	if opts.Filters.needsAPI() {
		return false, fmt.Errorf("%w: %w", ErrFiltersRequireAPI, logs.ErrAPIUnavailable)
	}
	if fallback == nil {
		return false, logs.ErrAPIUnavailable
	}
	return streamFile(ctx, fallback, opts, onLine)
}

func streamAPI(ctx context.Context, client *logs.StreamClient, opts Options, onEvent func(api.LogEvent)) (bool, error) {
	query := logs.StreamQuery{
		Limit:     opts.Lines,
		Tail:      true,
		Component: opts.Filters.Component,
		Stage:     opts.Filters.Stage,
		Platform:  opts.Filters.Platform,
		ItemID:    opts.Filters.ItemID,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}
	match := strings.ToLower(strings.TrimSpace(opts.Filters.Match))

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			if printed && errors.Is(err, context.Canceled) {
				return printed, nil
			}
			return printed, err
		}
		for _, evt := range resp.Events {
			if match != "" && !strings.Contains(strings.ToLower(evt.Message), match) {
				continue
			}
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

func streamFile(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	limit := max(opts.Lines, 0)
	offset := int64(-1)
	if limit == 0 {
		offset = 0
	}

	printed := false
	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: 1000,
			Match:      opts.Filters.Match,
		})
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !opts.Follow {
			return printed, nil
		}
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
