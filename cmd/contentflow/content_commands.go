package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contentflow/internal/api"
	"contentflow/internal/queueaccess"
)

func newContentCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newCreateCommand(ctx),
		newListCommand(ctx),
		newShowCommand(ctx),
		newRegenerateCommand(ctx),
		newResumeCommand(ctx),
		newPublishCommand(ctx),
		newEditCommand(ctx),
		newRemoveCommand(ctx),
		newClearCommand(ctx),
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var platform string
	var method string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create <topic...>",
		Short: "Queue a new content idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.CreateRequest{
				Topic:         strings.Join(args, " "),
				Platform:      platform,
				PostingMethod: method,
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				if done, err := maybeJSON(cmd, asJSON, item); done {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d (%s): %s\n", item.ID, item.PlatformLabel, item.Topic)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Target platform (linkedin, twitter, instagram, tiktok, facebook)")
	cmd.Flags().StringVarP(&method, "method", "m", "", "Posting method (direct, make, zapier, buffer)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List content items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if done, err := maybeJSON(cmd, asJSON, items); done {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Topic", "Platform", "Status", "Stages", "Created"},
					buildContentListRows(items, time.Now(), shouldColorize(out)),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if done, err := maybeJSON(cmd, asJSON, item); done {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetails(fmt.Sprintf("Item %d", item.ID), itemDetails(*item, time.Now())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <id> <stage>",
		Short: "Re-run one stage (text, image, audio, video, socialPost)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Regenerate(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d queued to regenerate %s\n", item.ID, args[1])
				return nil
			})
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Continue a paused or failed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Resume(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d resumed (%s)\n", item.ID, stageStrip(*item, false))
				return nil
			})
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Queue the socialPost stage for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.Publish(cmd.Context(), id, method)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d queued for publishing via %s\n", item.ID, item.PostingMethod)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Override the item's posting method")
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var textFlag string
	var fileFlag string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace an item's drafted text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			text, err := readEditText(cmd.InOrStdin(), textFlag, fileFlag)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				item, err := access.EditText(cmd.Context(), id, text)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d text updated (%d/%d characters)\n", item.ID, item.CharCount, item.CharLimit)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "New post text")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read new text from a file (- for stdin)")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id...>",
		Aliases: []string{"rm"},
		Short:   "Remove items by ID",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseItemID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				result, err := access.Remove(cmd.Context(), ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, entry := range result.Items {
					if entry.Removed {
						fmt.Fprintf(out, "Item %d removed\n", entry.ID)
					} else {
						fmt.Fprintf(out, "Item %d not found\n", entry.ID)
					}
				}
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var completed bool
	var failed bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove items that are not being processed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && failed {
				return errors.New("specify only one of --completed or --failed")
			}
			scope, label := "all", "queue"
			switch {
			case completed:
				scope, label = "completed", "completed"
			case failed:
				scope, label = "failed", "failed"
			}
			return ctx.withQueue(func(access queueaccess.Access) error {
				removed, err := access.Clear(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s items\n", removed, label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Remove only published items")
	cmd.Flags().BoolVar(&failed, "failed", false, "Remove only failed items")
	return cmd
}

func parseItemID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", value)
	}
	return id, nil
}

func readEditText(stdin io.Reader, text, file string) (string, error) {
	switch {
	case text != "" && file != "":
		return "", errors.New("specify only one of --text or --file")
	case text != "":
		return text, nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		return "", errors.New("new text is required (use --text or --file)")
	}
}
