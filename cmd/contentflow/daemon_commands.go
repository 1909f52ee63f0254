package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"contentflow/internal/api"
	"contentflow/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the contentflow daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			ctl, err := newController(ctx, startLogLevel)
			if err != nil {
				return err
			}

			result, err := ctl.Start(cmd.Context())
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			printStartState(stdout, result, "Daemon started")
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Log level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the contentflow daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			ctl := &daemonctl.Controller{SocketPath: ctx.socketPath(), Config: ctx.configValue()}
			result, err := ctl.Stop(cmd.Context())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping daemon workflow...")
			}
			printSignaled(stdout, result)
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the contentflow daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			ctl, err := newController(ctx, restartLogLevel)
			if err != nil {
				return err
			}

			result, err := ctl.Restart(cmd.Context())
			if err != nil {
				return err
			}

			if result.WasRunning {
				printSignaled(stdout, result.Stop)
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			printStartState(stdout, result.Start, "Daemon restarted")
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Log level for the launched daemon")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if done, err := maybeJSON(cmd, statusJSON, snapshot); done {
				return err
			}
			renderStatus(cmd, snapshot)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func printStartState(out io.Writer, result daemonctl.StartResult, started string) {
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(out, started)
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(out, "Daemon already running")
	case daemonctl.StartStateRequested:
		if strings.TrimSpace(result.Message) != "" {
			fmt.Fprintln(out, result.Message)
			return
		}
		fmt.Fprintln(out, "Start request sent")
	}
}

func renderStatus(cmd *cobra.Command, snapshot *daemonctl.Snapshot) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	status := snapshot.Daemon

	section := func(title string, lines []string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(stdout, line)
		}
		for _, line := range lines {
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintln(stdout)
	}

	section("System Status", statusLines(snapshot.SystemChecks, colorize))
	section("Dependencies", dependencyLines(status.Dependencies, snapshot.DependencySummary, colorize))
	section("Relays", relayLines(status.Relays, colorize))
	section("Directories", statusLines(snapshot.Directories, colorize))
	if status.Running && len(status.Workflow.StageHealth) > 0 {
		section("Stages", stageHealthLines(status.Workflow.StageHealth, colorize))
	}
	if status.Workflow.LastError != "" {
		section("Last Error", []string{renderStatusLine("Workflow", statusError, status.Workflow.LastError, colorize)})
	}

	for _, line := range renderSectionHeader("Queue Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := buildQueueStatusRows(status.Workflow.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
		return
	}
	fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func statusLines(lines []api.StatusLine, colorize bool) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
	}
	return out
}

func dependencyLines(deps []api.DependencyStatus, summary api.DependencySummary, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, statusKindFromSeverity(daemonctl.DependencySeverity(dep)), detail, colorize))
	}
	return lines
}

func relayLines(relays []api.RelayStatus, colorize bool) []string {
	lines := make([]string, 0, len(relays))
	for _, relay := range relays {
		kind := statusInfo
		if relay.Ready {
			kind = statusOK
		}
		lines = append(lines, renderStatusLine(relay.Name, kind, relay.Detail, colorize))
	}
	return lines
}

func stageHealthLines(health []api.StageHealth, colorize bool) []string {
	sorted := append([]api.StageHealth(nil), health...)
	sort.SliceStable(sorted, func(i, j int) bool { return stageOrder(sorted[i].Name) < stageOrder(sorted[j].Name) })
	lines := make([]string, 0, len(sorted))
	for _, entry := range sorted {
		kind := statusWarn
		if entry.Ready {
			kind = statusOK
		}
		lines = append(lines, renderStatusLine(entry.Name, kind, entry.Detail, colorize))
	}
	return lines
}

func newController(ctx *commandContext, logLevel string) (*daemonctl.Controller, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &daemonctl.Controller{
		SocketPath: ctx.socketPath(),
		Config:     ctx.configValue(),
		Executable: exe,
		Launch:     daemonLaunchOptions(ctx, logLevel),
	}, nil
}

func printSignaled(out io.Writer, result daemonctl.StopResult) {
	switch {
	case result.ForcedKill:
		fmt.Fprintf(out, "Killed daemon process (pid %d)\n", result.PID)
	case result.Signaled:
		fmt.Fprintf(out, "Terminated daemon process (pid %d)\n", result.PID)
	}
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: logLevel}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
