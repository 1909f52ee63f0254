package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"contentflow/internal/config"
	"contentflow/internal/daemonrun"
	"contentflow/internal/logging"
	"contentflow/internal/notifications"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
	"contentflow/internal/stageexec"
	"contentflow/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var platform string
	var method string
	var only string
	var through string

	cmd := &cobra.Command{
		Use:   "run [id]",
		Short: "Run the pipeline for one item in the foreground without the daemon",
		Long: "Run drives an item through its stages in this process. Pass an existing item ID, " +
			"or --topic to create one first. The daemon must not be running.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 && strings.TrimSpace(topic) == "" {
				return errors.New("an item id or --topic is required")
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return errors.New("the contentflow daemon is running; use resume or regenerate instead")
			}
			defer lock.Unlock()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := loadRunItem(runCtx, store, args, topic, platform, method)
			if err != nil {
				return err
			}
			if err := prepareRunItem(item, only); err != nil {
				return err
			}
			if err := store.Update(runCtx, item); err != nil {
				return err
			}

			opts, err := runOptions(cfg, store, item, through)
			if err != nil {
				return err
			}
			runErr := stageexec.Run(runCtx, opts)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Item %d: %s [%s]\n", item.ID, formatStatusLabel(string(item.Status)), strings.Join(stageStatuses(item), " "))
			if item.VideoPath != "" {
				fmt.Fprintf(out, "Preview: %s\n", fileSummary(item.VideoPath, ""))
			}
			if item.PostURL != "" {
				fmt.Fprintf(out, "Posted: %s\n", item.PostURL)
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Create a new item with this topic and run it")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Platform for --topic")
	cmd.Flags().StringVarP(&method, "method", "m", "", "Posting method for --topic")
	cmd.Flags().StringVar(&only, "stage", "", "Run only this stage")
	cmd.Flags().StringVar(&through, "through", "", "Stop after this stage")
	return cmd
}

func loadRunItem(ctx context.Context, store *queue.Store, args []string, topic, platform, method string) (*queue.Item, error) {
	if len(args) == 0 {
		return store.NewItem(ctx, strings.TrimSpace(topic), platform, method)
	}
	id, err := parseItemID(args[0])
	if err != nil {
		return nil, err
	}
	item, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}

// prepareRunItem makes sure the item has a stage requested: the one named
// by --stage, a failed stage to retry, or the next idle stage.
func prepareRunItem(item *queue.Item, only string) error {
	if strings.TrimSpace(only) != "" {
		stg, ok := pipeline.ParseStage(only)
		if !ok {
			return fmt.Errorf("unknown stage %q", only)
		}
		return item.Regenerate(stg)
	}
	if _, ok := item.Stages.Active(); ok {
		return nil
	}
	if failed, ok := item.Stages.Failed(); ok {
		return item.Begin(failed)
	}
	next, ok := item.Stages.Next()
	if !ok {
		return fmt.Errorf("item %d has nothing left to run", item.ID)
	}
	return item.Begin(next)
}

func runOptions(cfg *config.Config, store *queue.Store, item *queue.Item, through string) (stageexec.Options, error) {
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return stageexec.Options{}, err
	}
	opts := stageexec.Options{
		Logger:   logger,
		Store:    store,
		Notifier: notifications.NewService(cfg),
		Item:     item,
		Handlers: resolverFor(daemonrun.BuildStages(cfg, relay.NewFromConfig(cfg, store, store, logger), logger)),
	}
	if strings.TrimSpace(through) != "" {
		stg, ok := pipeline.ParseStage(through)
		if !ok {
			return stageexec.Options{}, fmt.Errorf("unknown stage %q", through)
		}
		opts.Through = stg
	}
	return opts, nil
}

func resolverFor(set workflow.StageSet) stageexec.Resolver {
	return func(stg pipeline.Stage) stageexec.Handler {
		switch stg {
		case pipeline.StageText:
			return set.Text
		case pipeline.StageImage:
			return set.Image
		case pipeline.StageAudio:
			return set.Audio
		case pipeline.StageVideo:
			return set.Video
		case pipeline.StageSocialPost:
			return set.Publish
		default:
			return nil
		}
	}
}

func stageStatuses(item *queue.Item) []string {
	out := make([]string, 0, len(pipeline.Stages()))
	for _, stg := range pipeline.Stages() {
		out = append(out, fmt.Sprintf("%s=%s", stg, item.Stages.Status(stg)))
	}
	return out
}
