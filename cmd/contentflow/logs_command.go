package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"contentflow/internal/api"
	"contentflow/internal/logs"
	"contentflow/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logstream.Options
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			apiClient, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil {
				return fmt.Errorf("log api address: %w", err)
			}

			var fallback logstream.TailClient
			client, dialErr := ctx.dialClient()
			if dialErr == nil {
				defer client.Close()
				fallback = client
			}

			printed, err := logstream.Stream(cmd.Context(), apiClient, fallback, opts,
				func(evt api.LogEvent) {
					if asJSON {
						_ = writeJSON(cmd, evt)
						return
					}
					fmt.Fprintln(out, formatLogEvent(evt))
				},
				func(line string) { fmt.Fprintln(out, line) },
			)
			if err != nil {
				if errors.Is(err, logs.ErrAPIUnavailable) && fallback == nil && dialErr != nil {
					return dialErr
				}
				return err
			}
			if !printed && !opts.Follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep streaming new entries")
	cmd.Flags().StringVar(&opts.Filters.Component, "component", "", "Only show entries from this component")
	cmd.Flags().StringVar(&opts.Filters.Stage, "stage", "", "Only show entries for this stage")
	cmd.Flags().StringVar(&opts.Filters.Platform, "platform", "", "Only show entries for this platform")
	cmd.Flags().Int64Var(&opts.Filters.ItemID, "item", 0, "Only show entries for this item")
	cmd.Flags().StringVar(&opts.Filters.Match, "grep", "", "Only show entries containing this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print structured events as JSON lines")
	return cmd
}

func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("2006-01-02 15:04:05"))
	b.WriteString(" ")
	b.WriteString(strings.ToUpper(evt.Level))
	if subject := logSubject(evt); subject != "" {
		b.WriteString(" [")
		b.WriteString(subject)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(evt.Message)
	writeFields(&b, evt.Fields)
	for _, detail := range evt.Details {
		b.WriteString("\n    - ")
		b.WriteString(detail.Label)
		b.WriteString(": ")
		b.WriteString(detail.Value)
	}
	return b.String()
}

func logSubject(evt api.LogEvent) string {
	parts := make([]string, 0, 3)
	if evt.Component != "" {
		parts = append(parts, evt.Component)
	}
	if evt.ItemID != 0 {
		parts = append(parts, fmt.Sprintf("#%d", evt.ItemID))
	}
	if evt.Stage != "" {
		parts = append(parts, evt.Stage)
	}
	return strings.Join(parts, " ")
}

func writeFields(w io.StringWriter, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = w.WriteString(" " + key + "=" + fields[key])
	}
}
