package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"contentflow/internal/api"
	"contentflow/internal/queueaccess"
	"contentflow/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage per-item working directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staging directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}
			if dirs == nil {
				dirs = []staging.DirInfo{}
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if done, err := maybeJSON(cmd, asJSON, map[string]any{
				"staging_dir":      stagingDir,
				"directories":      dirs,
				"total_size_bytes": totalSize,
			}); done {
				return err
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}

			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)
			now := time.Now()
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				item := "-"
				if dir.ItemID > 0 {
					item = fmt.Sprintf("%d", dir.ItemID)
				}
				rows = append(rows, []string{dir.Name, item, humanize.RelTime(dir.ModTime, now, "ago", "from now"), humanize.Bytes(uint64(dir.Size))})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Directory", "Item", "Modified", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanize.Bytes(uint64(totalSize)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove orphaned staging directories",
		Long: `Remove staging directories not associated with any queue item.

By default only directories of removed or cleared items are deleted.
Use --all to remove every staging directory regardless of queue state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				req := api.CleanStagingRequest{
					StagingDir: cfg.Paths.StagingDir,
					CleanAll:   cleanAll,
				}
				if !cleanAll {
					req.Items = queuedItems{access: access}
				}

				result, err := api.CleanStagingDirectories(cmd.Context(), req)
				if err != nil {
					return err
				}
				if done, err := maybeJSON(cmd, asJSON, stagingCleanPayload(result.Cleanup)); done {
					return err
				}
				if !result.Configured {
					fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
					return nil
				}
				printStagingCleanResult(cmd, result.Cleanup, result.Scope)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all staging directories, including those of queued items")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// queuedItems lists item ids through whichever queue access the CLI opened.
type queuedItems struct {
	access queueaccess.Access
}

func (q queuedItems) ActiveItemIDs(ctx context.Context) (map[int64]struct{}, error) {
	items, err := q.access.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return api.ItemIDSet(items), nil
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanResult, label string) {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return
	}
	fmt.Fprintf(out, "Removed %d %s directories", len(result.Removed), label)
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, ", %d errors", len(result.Errors))
	}
	fmt.Fprintln(out)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
	}
}

func stagingCleanPayload(result staging.CleanResult) map[string]any {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return map[string]any{
		"removed": len(result.Removed),
		"errors":  errs,
	}
}
