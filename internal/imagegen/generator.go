package imagegen

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/content"
	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/services/picsum"
	"contentflow/internal/stage"
)

const (
	stageName = "image"
	fileName  = "image.jpg"
)

// Source resolves and fetches images.
type Source interface {
	SeedURL(seed int) string
	FallbackURL() string
	Check(ctx context.Context, imageURL string) error
	Download(ctx context.Context, imageURL, dest string) (int64, error)
}

// Generator is the image stage handler.
type Generator struct {
	cfg    *config.Config
	source Source
	logger *slog.Logger
}

// NewGenerator builds a handler backed by the configured image service.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	source := picsum.NewClient(picsum.Config{
		BaseURL:        cfg.Image.BaseURL,
		Width:          cfg.Image.Width,
		Height:         cfg.Image.Height,
		TimeoutSeconds: cfg.Image.TimeoutSeconds,
	}, nil)
	return NewGeneratorWithSource(cfg, source, logger)
}

// NewGeneratorWithSource builds a handler around an existing source.
func NewGeneratorWithSource(cfg *config.Config, source Source, logger *slog.Logger) *Generator {
	g := &Generator{cfg: cfg, source: source}
	g.SetLogger(logger)
	return g
}

// SetLogger updates the generator's logging destination.
func (g *Generator) SetLogger(logger *slog.Logger) {
	g.logger = logging.NewComponentLogger(logger, "imagegen")
}

// Prepare ensures text exists and the staging directory is ready.
func (g *Generator) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.RequireText(stageName, item); err != nil {
		return err
	}
	if err := stage.EnsureDir(stageName, g.cfg.ItemStagingDir(item.ID)); err != nil {
		return err
	}
	item.SetProgress(pipeline.StageImage.Label(), "Selecting image", 10)
	return nil
}

// Execute picks the image URL and downloads it next to the item's other
// artifacts.
func (g *Generator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, g.logger)
	text, err := stage.RequireText(stageName, item)
	if err != nil {
		return err
	}

	seed := content.ImageSeed(text)
	imageURL := g.source.SeedURL(seed)
	if err := g.source.Check(ctx, imageURL); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		fallback := g.source.FallbackURL()
		logging.WarnWithContext(logger, "seeded image unavailable; using random image", "image_fallback",
			logging.String("seed_url", imageURL),
			logging.String("fallback_url", fallback),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the image will differ if the stage is regenerated"),
		)
		imageURL = fallback
	}

	dest := filepath.Join(g.cfg.ItemStagingDir(item.ID), fileName)
	start := time.Now()
	written, err := g.source.Download(ctx, imageURL, dest)
	if err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.WithCode(services.Wrap(marker, stageName, "download image",
			"Failed to download image", err), "image_generation_failed")
	}

	item.ImageURL = imageURL
	item.ImagePath = dest
	logger.Info("image ready",
		logging.String(logging.FieldEventType, "image_generated"),
		logging.Int("seed", seed),
		logging.String("image_url", imageURL),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HealthCheck reports whether the staging directory is configured.
func (g *Generator) HealthCheck(context.Context) stage.Health {
	if g.cfg.Paths.StagingDir == "" {
		return stage.Unhealthy(stageName, "staging directory not configured")
	}
	return stage.Healthy(stageName)
}
