package textgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"contentflow/internal/config"
	"contentflow/internal/content"
	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/services"
	"contentflow/internal/services/llm"
	"contentflow/internal/stage"
)

const stageName = "text"

// Completer drafts text from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Generator is the text stage handler.
type Generator struct {
	cfg    *config.Config
	client Completer
	logger *slog.Logger
}

// NewGenerator builds a handler backed by the configured chat completion API.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewGeneratorWithClient(cfg, client, logger)
}

// NewGeneratorWithClient builds a handler around an existing completer.
func NewGeneratorWithClient(cfg *config.Config, client Completer, logger *slog.Logger) *Generator {
	g := &Generator{cfg: cfg, client: client}
	g.SetLogger(logger)
	return g
}

// SetLogger updates the generator's logging destination.
func (g *Generator) SetLogger(logger *slog.Logger) {
	g.logger = logging.NewComponentLogger(logger, "textgen")
}

// Prepare checks the inputs and the API key before any request is made.
func (g *Generator) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Topic) == "" || strings.TrimSpace(item.Platform) == "" {
		return services.WithCode(services.Wrap(services.ErrValidation, stageName, "validate input",
			"Topic and platform are required", nil), "missing_parameters")
	}
	if !g.cfg.OpenAIConfigured() {
		return services.WithHint(services.WithCode(services.Wrap(services.ErrConfiguration, stageName, "check api key",
			"OpenAI API key is not configured", nil), "openai_api_key_missing"),
			"set llm.api_key in config.toml or OPENAI_API_KEY")
	}
	item.SetProgress(pipeline.StageText.Label(), "Drafting post", 10)
	return nil
}

// Execute drafts the post text.
func (g *Generator) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, g.logger)

	platform, err := content.ParsePlatform(item.Platform)
	if err != nil {
		return services.WithCode(services.Wrap(services.ErrValidation, stageName, "parse platform", err.Error(), err), "missing_parameters")
	}

	prompt := content.Prompt(platform, item.Topic)
	logger.Debug("requesting draft",
		logging.String("model", g.cfg.LLM.Model),
		logging.Int("prompt_chars", len(prompt)),
	)

	text, err := g.client.Complete(ctx, content.SystemPrompt, prompt)
	if err != nil {
		return classify(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return services.WithCode(services.Wrap(services.ErrExternalTool, stageName, "chat completion",
			"No content generated", llm.ErrNoContent), "no_content_generated")
	}

	item.Text = text
	item.Hashtags = content.ExtractHashtags(text)
	logger.Info("text generated",
		logging.String(logging.FieldEventType, "text_generated"),
		logging.Int("chars", len([]rune(text))),
		logging.Int("hashtags", len(item.Hashtags)),
	)
	if err := content.Validate(platform, text); err != nil {
		logging.WarnWithContext(logger, "draft exceeds platform limit", "text_over_limit",
			logging.String(logging.FieldErrorMessage, err.Error()),
			logging.String(logging.FieldImpact, "publishing will be rejected until the text is edited or regenerated"),
		)
	}
	return nil
}

func classify(err error) error {
	var statusErr *llm.StatusError
	switch {
	case errors.Is(err, llm.ErrNoContent):
		return services.WithCode(services.Wrap(services.ErrExternalTool, stageName, "chat completion",
			"No content generated", err), "no_content_generated")
	case errors.As(err, &statusErr):
		return services.WithCode(services.Wrap(services.ErrExternalTool, stageName, "chat completion",
			fmt.Sprintf("OpenAI API error: %d", statusErr.StatusCode), err), "openai_api_error")
	case errors.Is(err, context.DeadlineExceeded):
		return services.WithCode(services.Wrap(services.ErrTimeout, stageName, "chat completion",
			"Text generation timed out", err), "text_generation_failed")
	default:
		return services.WithCode(services.Wrap(services.ErrTransient, stageName, "chat completion",
			"Failed to generate text", err), "text_generation_failed")
	}
}

// HealthCheck reports whether an API key is configured.
func (g *Generator) HealthCheck(context.Context) stage.Health {
	if !g.cfg.OpenAIConfigured() {
		return stage.Unhealthy(stageName, "OpenAI API key not configured")
	}
	return stage.Healthy(stageName)
}
