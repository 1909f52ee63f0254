package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contentflow/internal/content"
	"contentflow/internal/events"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
	"contentflow/internal/services"
)

const serviceStage = "api"

// ContentStore abstracts the queue persistence the content service needs.
type ContentStore interface {
	NewItem(ctx context.Context, topic, platform, method string) (*queue.Item, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	Update(ctx context.Context, item *queue.Item) error
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	Remove(ctx context.Context, id int64) (bool, error)
	Clear(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

// ContentService exposes the user-facing item operations returning API DTOs.
type ContentService struct {
	store  ContentStore
	events events.Publisher
}

// NewContentService constructs a ContentService. A nil publisher disables
// change broadcasts.
func NewContentService(store ContentStore, publisher events.Publisher) *ContentService {
	if store == nil {
		return nil
	}
	return &ContentService{store: store, events: publisher}
}

// Create validates a new content idea and queues it with the text stage
// requested.
func (s *ContentService) Create(ctx context.Context, req CreateRequest) (*ContentItem, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, validationError("create", "missing_parameters", "Topic is required")
	}
	platform, err := content.ParsePlatform(req.Platform)
	if err != nil {
		return nil, validationError("create", "missing_parameters", err.Error())
	}
	method := strings.TrimSpace(req.PostingMethod)
	if method != "" {
		parsed, err := relay.ParseMethod(method)
		if err != nil {
			return nil, validationError("create", "unknown_posting_method", err.Error())
		}
		method = string(parsed)
	}

	item, err := s.store.NewItem(ctx, topic, string(platform), method)
	if err != nil {
		return nil, err
	}
	s.publish(events.ItemEvent(events.TypeItemCreated, item))
	dto := FromContentItem(item)
	return &dto, nil
}

// List returns items filtered by status, newest first.
func (s *ContentService) List(ctx context.Context, statuses ...queue.Status) ([]ContentItem, error) {
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return SortContentNewestFirst(FromContentItems(items)), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *ContentService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single item. It returns nil, nil when the id is unknown.
func (s *ContentService) Describe(ctx context.Context, id int64) (*ContentItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromContentItem(item)
	return &dto, nil
}

// Regenerate re-runs one stage of an item. The item pauses when the stage
// finishes; downstream stages keep their results.
func (s *ContentService) Regenerate(ctx context.Context, id int64, stg pipeline.Stage) (*ContentItem, error) {
	return s.mutate(ctx, id, "regenerate", func(item *queue.Item) error {
		if err := item.Regenerate(stg); err != nil {
			return transitionError("regenerate", err)
		}
		return nil
	})
}

// Resume continues the automatic chain of a paused or failed item: a failed
// stage is retried, otherwise the next idle stage is begun.
func (s *ContentService) Resume(ctx context.Context, id int64) (*ContentItem, error) {
	return s.mutate(ctx, id, "resume", func(item *queue.Item) error {
		if failed, ok := item.Stages.Failed(); ok {
			return transitionError("resume", item.Begin(failed))
		}
		next, ok := item.Stages.Next()
		if !ok {
			if item.Stages.Terminal() {
				return validationError("resume", "already_published", "Item has already been published")
			}
			return validationError("resume", "nothing_to_resume", "Item has no stage waiting to run")
		}
		return transitionError("resume", item.Begin(next))
	})
}

// Publish requests the socialPost stage. A non-empty method replaces the
// item's posting method first.
func (s *ContentService) Publish(ctx context.Context, id int64, method string) (*ContentItem, error) {
	return s.mutate(ctx, id, "publish", func(item *queue.Item) error {
		if strings.TrimSpace(method) != "" {
			parsed, err := relay.ParseMethod(method)
			if err != nil {
				return validationError("publish", "unknown_posting_method", err.Error())
			}
			item.PostingMethod = string(parsed)
		}
		return transitionError("publish", item.Begin(pipeline.StageSocialPost))
	})
}

// EditText replaces the drafted text and re-extracts hashtags. The text must
// fit the platform's character limit.
func (s *ContentService) EditText(ctx context.Context, id int64, text string) (*ContentItem, error) {
	return s.mutate(ctx, id, "edit text", func(item *queue.Item) error {
		platform, err := content.ParsePlatform(item.Platform)
		if err != nil {
			return validationError("edit text", "missing_parameters", err.Error())
		}
		if err := content.Validate(platform, text); err != nil {
			code := "content_invalid"
			var limitErr *content.LimitError
			if errors.As(err, &limitErr) {
				code = "content_too_long"
			}
			return validationError("edit text", code, err.Error())
		}
		item.Text = text
		item.Hashtags = content.ExtractHashtags(text)
		return nil
	})
}

// Remove deletes items by id and reports how many existed. It stops at the
// first item that is being processed.
func (s *ContentService) Remove(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := s.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
			s.publish(events.Removed(id))
			continue
		}
		item, err := s.store.GetByID(ctx, id)
		if err != nil {
			return removed, err
		}
		if item != nil && item.IsProcessing() {
			return removed, validationError("remove", "item_busy", fmt.Sprintf("Item %d is being processed", id))
		}
	}
	return removed, nil
}

// Clear removes every item not currently processing.
func (s *ContentService) Clear(ctx context.Context) (int64, error) {
	return s.cleared(s.store.Clear(ctx))
}

// ClearCompleted removes published items.
func (s *ContentService) ClearCompleted(ctx context.Context) (int64, error) {
	return s.cleared(s.store.ClearCompleted(ctx))
}

// ClearFailed removes failed items.
func (s *ContentService) ClearFailed(ctx context.Context) (int64, error) {
	return s.cleared(s.store.ClearFailed(ctx))
}

func (s *ContentService) cleared(count int64, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(events.Cleared(count))
	}
	return count, nil
}

func (s *ContentService) mutate(ctx context.Context, id int64, op string, apply func(*queue.Item) error) (*ContentItem, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, services.WithCode(
			services.Wrap(services.ErrNotFound, serviceStage, op, fmt.Sprintf("Item %d not found", id), nil),
			"not_found",
		)
	}
	if item.IsProcessing() {
		return nil, validationError(op, "item_busy", fmt.Sprintf("Item %d is being processed", id))
	}
	if err := apply(item); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, item); err != nil {
		return nil, err
	}
	s.publish(events.ItemEvent(events.TypeItemUpdated, item))
	dto := FromContentItem(item)
	return &dto, nil
}

func (s *ContentService) publish(evt events.Event) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}

func validationError(op, code, message string) error {
	return services.WithCode(services.Wrap(services.ErrValidation, serviceStage, op, message, nil), code)
}

func transitionError(op string, err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	var transition *pipeline.TransitionError
	if errors.As(err, &transition) && transition.Reason != "" {
		message = fmt.Sprintf("Cannot %s %s: %s", op, transition.Stage.Label(), transition.Reason)
	}
	return services.WithCode(services.Wrap(services.ErrValidation, serviceStage, op, message, err), "invalid_transition")
}
