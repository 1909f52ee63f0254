package ipc

import "contentflow/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// ContentItem mirrors the HTTP API item DTO for IPC callers.
type ContentItem = api.ContentItem

// StatusResponse is the same payload the HTTP API serves on /api/status.
type StatusResponse = api.DaemonStatus

// ContentCreateRequest queues a new content idea.
type ContentCreateRequest = api.CreateRequest

// ContentItemResponse wraps a single item.
type ContentItemResponse struct {
	Item ContentItem `json:"item"`
}

// ContentListRequest filters listing by status.
type ContentListRequest struct {
	Statuses []string `json:"statuses"`
}

// ContentListResponse contains items, newest first.
type ContentListResponse struct {
	Items []ContentItem `json:"items"`
}

// ContentIDRequest addresses one item.
type ContentIDRequest struct {
	ID int64 `json:"id"`
}

// ContentRegenerateRequest re-runs one stage of an item.
type ContentRegenerateRequest struct {
	ID    int64  `json:"id"`
	Stage string `json:"stage"`
}

// ContentPublishRequest requests the socialPost stage.
type ContentPublishRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
}

// ContentEditTextRequest replaces an item's drafted text.
type ContentEditTextRequest struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// ContentRemoveRequest removes specific items by ID.
type ContentRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// CountResponse reports how many items an operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

// QueueClearRequest removes items. Scope is all, completed or failed.
type QueueClearRequest struct {
	Scope string `json:"scope"`
}

// QueueStatsRequest fetches per-status counts.
type QueueStatsRequest struct{}

// QueueStatsResponse reports per-status counts.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueResetRequest resets in-flight items.
type QueueResetRequest struct{}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Paused     int `json:"paused"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Match      string `json:"match,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// WebhookGetRequest reads the Make.com webhook.
type WebhookGetRequest struct{}

// WebhookSetRequest stores the Make.com webhook.
type WebhookSetRequest struct {
	URL string `json:"url"`
}

// WebhookResponse mirrors the HTTP webhook payload.
type WebhookResponse = api.WebhookConfig

// MethodsRequest lists relays for a platform.
type MethodsRequest struct {
	Platform string `json:"platform"`
}

// MethodsResponse mirrors the HTTP publishing methods payload.
type MethodsResponse = api.PublishingMethodsResponse

// PostRequest publishes an ad-hoc message.
type PostRequest = api.PostRequest

// PostResponse reports the relay outcome.
type PostResponse = api.PostResponse

// LinkedInAuthorizeRequest starts the LinkedIn OAuth flow.
type LinkedInAuthorizeRequest struct{}

// LinkedInAuthorizeResponse carries the consent URL to open in a browser.
type LinkedInAuthorizeResponse struct {
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
}
