package queueaccess

import (
	"context"
	"fmt"

	"contentflow/internal/api"
	"contentflow/internal/ipc"
	"contentflow/internal/pipeline"
	"contentflow/internal/queue"
)

// Access provides item operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	Create(ctx context.Context, req api.CreateRequest) (*api.ContentItem, error)
	List(ctx context.Context, statuses []string) ([]api.ContentItem, error)
	Describe(ctx context.Context, id int64) (*api.ContentItem, error)
	Regenerate(ctx context.Context, id int64, stage string) (*api.ContentItem, error)
	Resume(ctx context.Context, id int64) (*api.ContentItem, error)
	Publish(ctx context.Context, id int64, method string) (*api.ContentItem, error)
	EditText(ctx context.Context, id int64, text string) (*api.ContentItem, error)
	Remove(ctx context.Context, ids []int64) (api.RemovalReport, error)
	Clear(ctx context.Context, scope string) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct DB access. Changes made
// this way are not broadcast to event subscribers.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store, service: api.NewContentService(store, nil)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.QueueStats()
	if err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

func (a *ipcAccess) Create(_ context.Context, req api.CreateRequest) (*api.ContentItem, error) {
	return itemFrom(a.client.ContentCreate(req))
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.ContentItem, error) {
	resp, err := a.client.ContentList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *ipcAccess) Describe(_ context.Context, id int64) (*api.ContentItem, error) {
	return itemFrom(a.client.ContentDescribe(id))
}

func (a *ipcAccess) Regenerate(_ context.Context, id int64, stage string) (*api.ContentItem, error) {
	return itemFrom(a.client.ContentRegenerate(id, stage))
}

func (a *ipcAccess) Resume(_ context.Context, id int64) (*api.ContentItem, error) {
	return itemFrom(a.client.ContentResume(id))
}

func (a *ipcAccess) Publish(_ context.Context, id int64, method string) (*api.ContentItem, error) {
	return itemFrom(a.client.ContentPublish(id, method))
}

func (a *ipcAccess) EditText(_ context.Context, id int64, text string) (*api.ContentItem, error) {
	return itemFrom(a.client.ContentEditText(id, text))
}

func (a *ipcAccess) Remove(ctx context.Context, ids []int64) (api.RemovalReport, error) {
	return api.ReportRemovals(ctx, ipcRemover{a.client}, ids)
}

func (a *ipcAccess) Clear(_ context.Context, scope string) (int64, error) {
	resp, err := a.client.QueueClear(scope)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (a *ipcAccess) ResetStuck(_ context.Context) (int64, error) {
	resp, err := a.client.QueueReset()
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (a *ipcAccess) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary(*resp), nil
}

func (a *ipcAccess) DatabaseHealth(_ context.Context) (queue.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return queue.DatabaseHealth(*resp), nil
}

type ipcRemover struct {
	client *ipc.Client
}

func (r ipcRemover) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := r.client.ContentRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func itemFrom(resp *ipc.ContentItemResponse, err error) (*api.ContentItem, error) {
	if err != nil {
		return nil, err
	}
	item := resp.Item
	return &item, nil
}

type storeAccess struct {
	store   *queue.Store
	service *api.ContentService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) Create(ctx context.Context, req api.CreateRequest) (*api.ContentItem, error) {
	return a.service.Create(ctx, req)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.ContentItem, error) {
	parsed := make([]queue.Status, 0, len(statuses))
	for _, value := range statuses {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		parsed = append(parsed, status)
	}
	return a.service.List(ctx, parsed...)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.ContentItem, error) {
	item, err := a.service.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d not found", id)
	}
	return item, nil
}

func (a *storeAccess) Regenerate(ctx context.Context, id int64, stage string) (*api.ContentItem, error) {
	stg, ok := pipeline.ParseStage(stage)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	return a.service.Regenerate(ctx, id, stg)
}

func (a *storeAccess) Resume(ctx context.Context, id int64) (*api.ContentItem, error) {
	return a.service.Resume(ctx, id)
}

func (a *storeAccess) Publish(ctx context.Context, id int64, method string) (*api.ContentItem, error) {
	return a.service.Publish(ctx, id, method)
}

func (a *storeAccess) EditText(ctx context.Context, id int64, text string) (*api.ContentItem, error) {
	return a.service.EditText(ctx, id, text)
}

func (a *storeAccess) Remove(ctx context.Context, ids []int64) (api.RemovalReport, error) {
	return api.ReportRemovals(ctx, a.service, ids)
}

func (a *storeAccess) Clear(ctx context.Context, scope string) (int64, error) {
	switch scope {
	case "", "all":
		return a.service.Clear(ctx)
	case string(queue.StatusCompleted):
		return a.service.ClearCompleted(ctx)
	case string(queue.StatusFailed):
		return a.service.ClearFailed(ctx)
	default:
		return 0, fmt.Errorf("unknown clear scope %q", scope)
	}
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *storeAccess) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return a.store.CheckHealth(ctx)
}
