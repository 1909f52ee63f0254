package videogen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/content"
	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/services/ffmpeg"
	"contentflow/internal/stage"
)

const (
	stageName = "video"
	fileName  = "preview.mp4"
)

// Renderer produces the preview file.
type Renderer interface {
	Binary() string
	Render(ctx context.Context, spec ffmpeg.Spec, onProgress func(ffmpeg.Progress)) error
}

// Generator is the video stage handler.
type Generator struct {
	cfg      *config.Config
	renderer Renderer
	logger   *slog.Logger
	reporter stage.ProgressReporter
	lookPath func(string) (string, error)
}

// NewGenerator builds a handler that drives the configured ffmpeg binary.
func NewGenerator(cfg *config.Config, logger *slog.Logger, opts ...ffmpeg.Option) *Generator {
	renderer := ffmpeg.New(cfg.Video.FFmpegBinary, time.Duration(cfg.Video.TimeoutSeconds)*time.Second, opts...)
	return NewGeneratorWithRenderer(cfg, renderer, logger)
}

// NewGeneratorWithRenderer builds a handler around an existing renderer.
func NewGeneratorWithRenderer(cfg *config.Config, renderer Renderer, logger *slog.Logger) *Generator {
	g := &Generator{cfg: cfg, renderer: renderer, lookPath: exec.LookPath}
	g.SetLogger(logger)
	return g
}

// SetLogger updates the generator's logging destination.
func (g *Generator) SetLogger(logger *slog.Logger) {
	g.logger = logging.NewComponentLogger(logger, "videogen")
}

// SetProgressReporter installs the callback used to persist render progress.
func (g *Generator) SetProgressReporter(reporter stage.ProgressReporter) {
	g.reporter = reporter
}

// Prepare ensures text exists and the staging directory is ready.
func (g *Generator) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.RequireText(stageName, item); err != nil {
		return err
	}
	if err := stage.EnsureDir(stageName, g.cfg.ItemStagingDir(item.ID)); err != nil {
		return err
	}
	item.SetProgress(pipeline.StageVideo.Label(), "Preparing render", 0)
	return nil
}

// Duration returns the preview length: the configured default, stretched
// to fit the narration when it runs longer.
func Duration(configured int, audioSeconds float64) time.Duration {
	if configured <= 0 {
		configured = 10
	}
	seconds := configured
	if audioSeconds > 0 {
		seconds = max(seconds, int(math.Ceil(audioSeconds)))
	}
	return time.Duration(seconds) * time.Second
}

// Execute renders the preview video.
func (g *Generator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, g.logger)
	text, err := stage.RequireText(stageName, item)
	if err != nil {
		return err
	}

	platform, err := content.ParsePlatform(item.Platform)
	if err != nil {
		platform = content.Platform(strings.ToLower(strings.TrimSpace(item.Platform)))
	}

	spec := ffmpeg.Spec{
		ImagePath: existing(item.ImagePath),
		AudioPath: existing(item.AudioPath),
		Text:      text,
		Label:     platform.Label(),
		Branding:  g.cfg.Video.Branding,
		FontFile:  g.cfg.Video.FontFile,
		Accent:    g.cfg.Video.AccentColor,
		Width:     g.cfg.Video.Width,
		Height:    g.cfg.Video.Height,
		Duration:  Duration(g.cfg.Video.DurationSeconds, item.AudioDuration),
		Output:    filepath.Join(g.cfg.ItemStagingDir(item.ID), fileName),
	}
	if spec.ImagePath == "" {
		logging.WarnWithContext(logger, "image file missing; rendering on a plain background", "video_without_image",
			logging.String("image_path", item.ImagePath),
			logging.String(logging.FieldImpact, "preview has no picture"),
		)
	}
	if spec.AudioPath == "" && item.AudioPath != "" {
		logging.WarnWithContext(logger, "narration file missing; rendering without audio", "video_without_audio",
			logging.String("audio_path", item.AudioPath),
			logging.String(logging.FieldImpact, "preview is silent"),
		)
	}

	sampler := logging.NewProgressSampler(10)
	onProgress := func(p ffmpeg.Progress) {
		if p.Percent < 0 {
			return
		}
		message := fmt.Sprintf("Rendering %s of %s", p.OutTime.Truncate(time.Second), spec.Duration)
		item.SetProgress(pipeline.StageVideo.Label(), message, p.Percent)
		if !sampler.Allow(p.Percent) {
			return
		}
		logger.Info("render progress",
			logging.String(logging.FieldEventType, "render_progress"),
			logging.Float64(logging.FieldProgressPercent, p.Percent),
			logging.String("speed", p.Speed),
		)
		if g.reporter != nil {
			if err := g.reporter(ctx, item); err != nil {
				logger.Debug("persist render progress failed", logging.Error(err))
			}
		}
	}

	start := time.Now()
	if err := g.renderer.Render(ctx, spec, onProgress); err != nil {
		marker := services.ErrExternalTool
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return services.WithCode(services.Wrap(marker, stageName, "render",
			"Video generation failed", err), "video_generation_failed")
	}

	item.VideoPath = spec.Output
	logger.Info("video ready",
		logging.String(logging.FieldEventType, "video_generated"),
		logging.String("video_path", spec.Output),
		logging.Duration("duration", spec.Duration),
		logging.Bool("with_audio", spec.AudioPath != ""),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func existing(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}

// HealthCheck reports whether ffmpeg resolves.
func (g *Generator) HealthCheck(context.Context) stage.Health {
	if _, err := g.lookPath(g.renderer.Binary()); err != nil {
		return stage.Unhealthy(stageName, fmt.Sprintf("ffmpeg binary %q not found", g.renderer.Binary()))
	}
	return stage.Healthy(stageName)
}
