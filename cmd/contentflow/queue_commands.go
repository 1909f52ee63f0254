package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"contentflow/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and repair the content queue",
	}
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	return queueCmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show item counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				stats, err := access.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if done, err := maybeJSON(cmd, asJSON, stats); done {
					return err
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				updated, err := access.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var database bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue and database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				out := cmd.OutOrStdout()
				health, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total: %d\nPending: %d\nProcessing: %d\nPaused: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Paused,
					health.Failed,
					health.Completed,
				)
				if !database {
					return nil
				}
				db, err := access.DatabaseHealth(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Database: %s\n", db.DBPath)
				fmt.Fprintf(out, "Exists: %s\nReadable: %s\nSchema version: %s\nTable present: %s\nIntegrity check: %s\n",
					yesNo(db.DatabaseExists),
					yesNo(db.DatabaseReadable),
					db.SchemaVersion,
					yesNo(db.TableExists),
					yesNo(db.IntegrityCheck),
				)
				if len(db.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(db.MissingColumns, ", "))
				}
				if db.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", db.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&database, "db", false, "Include database diagnostics")
	return cmd
}
