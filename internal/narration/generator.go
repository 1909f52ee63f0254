package narration

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/services/speech"
	"contentflow/internal/stage"
)

const (
	stageName = "audio"
	fileName  = "narration.wav"
)

// Synthesizer renders text to an audio file.
type Synthesizer interface {
	Available() error
	Synthesize(ctx context.Context, text, dest string) (time.Duration, error)
}

// Generator is the audio stage handler.
type Generator struct {
	cfg    *config.Config
	engine Synthesizer
	logger *slog.Logger
}

// NewGenerator builds a handler that drives the configured speech engine.
func NewGenerator(cfg *config.Config, logger *slog.Logger, opts ...speech.Option) *Generator {
	engine := speech.New(speech.Config{
		Binary:         cfg.Speech.Binary,
		Voice:          cfg.Speech.Voice,
		Rate:           cfg.Speech.Rate,
		Pitch:          cfg.Speech.Pitch,
		Volume:         cfg.Speech.Volume,
		WordsPerMinute: cfg.Speech.WordsPerMinute,
		TimeoutSeconds: cfg.Speech.TimeoutSeconds,
	}, opts...)
	return NewGeneratorWithEngine(cfg, engine, logger)
}

// NewGeneratorWithEngine builds a handler around an existing synthesizer.
func NewGeneratorWithEngine(cfg *config.Config, engine Synthesizer, logger *slog.Logger) *Generator {
	g := &Generator{cfg: cfg, engine: engine}
	g.SetLogger(logger)
	return g
}

// SetLogger updates the generator's logging destination.
func (g *Generator) SetLogger(logger *slog.Logger) {
	g.logger = logging.NewComponentLogger(logger, "narration")
}

// Prepare ensures text exists and the engine can run.
func (g *Generator) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := stage.RequireText(stageName, item); err != nil {
		return err
	}
	if err := g.engine.Available(); err != nil {
		return unsupported(err)
	}
	if err := stage.EnsureDir(stageName, g.cfg.ItemStagingDir(item.ID)); err != nil {
		return err
	}
	item.SetProgress(pipeline.StageAudio.Label(), "Synthesizing narration", 10)
	return nil
}

func unsupported(err error) error {
	return services.WithHint(services.WithCode(services.Wrap(services.ErrConfiguration, stageName, "locate engine",
		"Speech synthesis not supported on this host", err), "speech_synthesis_unsupported"),
		"install espeak-ng or set speech.binary")
}

// Execute synthesizes the narration.
func (g *Generator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, g.logger)
	text, err := stage.RequireText(stageName, item)
	if err != nil {
		return err
	}

	dest := filepath.Join(g.cfg.ItemStagingDir(item.ID), fileName)
	duration, err := g.engine.Synthesize(ctx, text, dest)
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrUnavailable):
			return unsupported(err)
		case errors.Is(err, context.DeadlineExceeded):
			return services.WithCode(services.Wrap(services.ErrTimeout, stageName, "synthesize",
				"Speech synthesis timed out", err), "speech_synthesis_failed")
		default:
			return services.WithCode(services.Wrap(services.ErrExternalTool, stageName, "synthesize",
				"Speech synthesis failed", err), "speech_synthesis_failed")
		}
	}

	item.AudioPath = dest
	item.AudioDuration = duration.Seconds()
	logger.Info("narration ready",
		logging.String(logging.FieldEventType, "audio_generated"),
		logging.String("audio_path", dest),
		logging.Duration("estimated_duration", duration),
	)
	return nil
}

// HealthCheck reports whether the engine binary resolves.
func (g *Generator) HealthCheck(context.Context) stage.Health {
	if err := g.engine.Available(); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
