package publishing

import (
	"context"
	"errors"
	"log/slog"

	"contentflow/internal/content"
	"contentflow/internal/logging"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
	"contentflow/internal/services"
	"contentflow/internal/stage"
)

const stageName = "socialPost"

// Poster sends a post through a relay.
type Poster interface {
	Publish(ctx context.Context, method relay.Method, post relay.Post) (relay.Result, error)
	DefaultMethod() relay.Method
	AvailableMethods(ctx context.Context, platform content.Platform) []relay.Method
}

// Publisher is the socialPost stage handler.
type Publisher struct {
	poster Poster
	logger *slog.Logger
}

// NewPublisher constructs the handler.
func NewPublisher(poster Poster, logger *slog.Logger) *Publisher {
	p := &Publisher{poster: poster}
	p.SetLogger(logger)
	return p
}

// SetLogger updates the publisher's logging destination.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	p.logger = logging.NewComponentLogger(logger, "publishing")
}

// Prepare validates the text and the posting method before any network
// call is made.
func (p *Publisher) Prepare(ctx context.Context, item *queue.Item) error {
	if _, _, err := p.resolve(item); err != nil {
		return err
	}
	item.SetProgress(pipeline.StageSocialPost.Label(), "Publishing", 10)
	return nil
}

func (p *Publisher) resolve(item *queue.Item) (content.Platform, relay.Method, error) {
	text, err := stage.RequireText(stageName, item)
	if err != nil {
		return "", "", err
	}
	platform, err := content.ParsePlatform(item.Platform)
	if err != nil {
		return "", "", services.WithCode(services.Wrap(services.ErrValidation, stageName, "parse platform", err.Error(), err), "missing_parameters")
	}
	if err := content.Validate(platform, text); err != nil {
		code := "content_invalid"
		var limitErr *content.LimitError
		if errors.As(err, &limitErr) {
			code = "content_too_long"
		}
		return "", "", services.WithCode(services.Wrap(services.ErrValidation, stageName, "validate content", err.Error(), err), code)
	}
	method := p.poster.DefaultMethod()
	if item.PostingMethod != "" {
		method, err = relay.ParseMethod(item.PostingMethod)
		if err != nil {
			return "", "", services.WithCode(services.Wrap(services.ErrValidation, stageName, "select relay", err.Error(), err), "unknown_posting_method")
		}
	}
	return platform, method, nil
}

// Execute posts the item.
func (p *Publisher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)
	platform, method, err := p.resolve(item)
	if err != nil {
		return err
	}

	result, err := p.poster.Publish(ctx, method, relay.Post{
		Platform: platform,
		Text:     item.Text,
		ImageURL: item.ImageURL,
		Hashtags: item.Hashtags,
	})
	if err != nil {
		if services.Code(err) == "" {
			err = services.WithCode(err, "publish_failed")
		}
		return err
	}

	item.PostID = result.PostID
	item.PostURL = result.PostURL
	item.SetProgress(pipeline.StageSocialPost.Label(), result.Message, 100)
	logger.Info("post published",
		logging.String(logging.FieldEventType, "post_published"),
		logging.String("method", string(method)),
		logging.String("post_id", result.PostID),
		logging.String("post_url", result.PostURL),
	)
	return nil
}

// HealthCheck reports whether any relay can post at all.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	for _, platform := range content.Platforms() {
		if len(p.poster.AvailableMethods(ctx, platform)) > 0 {
			return stage.Healthy(stageName)
		}
	}
	return stage.Unhealthy(stageName, "no posting method configured")
}
