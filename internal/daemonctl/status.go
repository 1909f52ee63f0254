package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contentflow/internal/api"
	"contentflow/internal/config"
	"contentflow/internal/deps"
	"contentflow/internal/ipc"
	"contentflow/internal/preflight"
	"contentflow/internal/queue"
)

// Snapshot is the status view rendered by the CLI. Daemon is populated from
// IPC when the daemon answers and from local probes otherwise.
type Snapshot struct {
	Daemon            *ipc.StatusResponse
	SystemChecks      []api.StatusLine
	Directories       []api.StatusLine
	DependencySummary api.DependencySummary
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks for queue stats and dependencies.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	statusResp := &ipc.StatusResponse{QueueDBPath: cfg.QueueDBPath(), LockFilePath: cfg.LockPath()}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			statusResp = resp
		}
	}

	if !statusResp.Running && len(statusResp.Workflow.QueueStats) == 0 {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		store, openErr := queue.Open(cfg)
		if openErr == nil {
			stats, statsErr := store.Stats(queryCtx)
			_ = store.Close()
			if statsErr == nil {
				statusResp.Workflow.QueueStats = api.MergeQueueStats(stats)
			}
		}
	}
	if len(statusResp.Dependencies) == 0 {
		statusResp.Dependencies = ResolveDependencies(ctx, cfg)
	}
	if len(statusResp.Relays) == 0 {
		for _, result := range preflight.CheckRelaysFromConfig(cfg) {
			statusResp.Relays = append(statusResp.Relays, api.RelayStatus{Name: result.Name, Ready: result.Passed, Detail: result.Detail})
		}
	}

	return &Snapshot{
		Daemon:            statusResp,
		SystemChecks:      BuildSystemChecks(cfg, statusResp.Running, statusResp.EventClients),
		Directories:       BuildDirectoryChecks(cfg),
		DependencySummary: BuildDependencySummary(statusResp.Dependencies),
	}, nil
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(ctx context.Context, cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return toDependencyStatuses(preflight.CheckSystemDeps(ctx, cfg))
}

func toDependencyStatuses(checks []deps.Status) []api.DependencyStatus {
	statuses := make([]api.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, api.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return statuses
}

// DependencySeverity maps availability onto ok, warn or error.
func DependencySeverity(dep api.DependencyStatus) string {
	switch {
	case dep.Available:
		return "ok"
	case dep.Optional:
		return "warn"
	default:
		return "error"
	}
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(cfg *config.Config, daemonRunning bool, eventClients int) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 5)
	if daemonRunning {
		lines = append(lines, api.StatusLine{Label: "Contentflow", Severity: "ok", Detail: "Running"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Contentflow", Severity: "warn", Detail: "Not running (run `contentflow start`)"})
	}

	key := preflight.CheckOpenAIKey(cfg)
	if key.Passed {
		lines = append(lines, api.StatusLine{Label: "OpenAI", Severity: "ok", Detail: key.Detail})
	} else {
		lines = append(lines, api.StatusLine{Label: "OpenAI", Severity: "error", Detail: key.Detail})
	}

	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		lines = append(lines, api.StatusLine{Label: "HTTP API", Severity: "info", Detail: "Disabled"})
	} else {
		detail := cfg.Paths.APIBind
		if daemonRunning {
			detail = fmt.Sprintf("%s (%d event subscriber(s))", cfg.Paths.APIBind, eventClients)
		}
		lines = append(lines, api.StatusLine{Label: "HTTP API", Severity: "ok", Detail: detail})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	}
	return lines
}

// BuildDirectoryChecks resolves configured directory readiness.
func BuildDirectoryChecks(cfg *config.Config) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Staging", path: cfg.Paths.StagingDir},
		{label: "Data", path: cfg.Paths.DataDir},
		{label: "Logs", path: cfg.Paths.LogDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, api.StatusLine{Label: dir.label, Severity: severity, Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return api.DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
