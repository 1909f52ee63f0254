package api

import "time"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ContentItem describes a content item in a transport-friendly format.
type ContentItem struct {
	ID             int64             `json:"id"`
	Topic          string            `json:"topic"`
	Platform       string            `json:"platform"`
	PlatformLabel  string            `json:"platformLabel"`
	PostingMethod  string            `json:"postingMethod,omitempty"`
	Status         string            `json:"status"`
	ProcessingLane string            `json:"processingLane"`
	Stages         map[string]string `json:"stages"`
	CurrentStep    int               `json:"currentStep"`
	LastStage      string            `json:"lastStage,omitempty"`
	SingleStage    bool              `json:"singleStage"`
	Text           string            `json:"text,omitempty"`
	Hashtags       []string          `json:"hashtags,omitempty"`
	CharCount      int               `json:"charCount"`
	CharLimit      int               `json:"charLimit"`
	ImageURL       string            `json:"imageUrl,omitempty"`
	ImagePath      string            `json:"imagePath,omitempty"`
	AudioPath      string            `json:"audioPath,omitempty"`
	AudioDuration  float64           `json:"audioDuration,omitempty"`
	VideoPath      string            `json:"videoPath,omitempty"`
	PostID         string            `json:"postId,omitempty"`
	PostURL        string            `json:"postUrl,omitempty"`
	Progress       StageProgress     `json:"progress"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
	ErrorCode      string            `json:"errorCode,omitempty"`
	FailedStage    string            `json:"failedStage,omitempty"`
	CreatedAt      string            `json:"createdAt,omitempty"`
	UpdatedAt      string            `json:"updatedAt,omitempty"`
}

// StageProgress captures stage progress information for an item.
type StageProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *ContentItem   `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// RelayStatus reports whether a posting relay has what it needs.
type RelayStatus struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	APIBind      string             `json:"apiBind,omitempty"`
	EventClients int                `json:"eventClients"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Relays       []RelayStatus      `json:"relays"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ContentListResponse wraps a collection of items for API responses.
type ContentListResponse struct {
	Items []ContentItem `json:"items"`
}

// ContentItemResponse wraps a single item.
type ContentItemResponse struct {
	Item ContentItem `json:"item"`
}

// CreateRequest submits a new content idea.
type CreateRequest struct {
	Topic         string `json:"topic"`
	Platform      string `json:"platform"`
	PostingMethod string `json:"postingMethod,omitempty"`
}

// PublishRequest asks for the socialPost stage, optionally through a
// different relay than the one stored on the item.
type PublishRequest struct {
	Method string `json:"method,omitempty"`
}

// EditTextRequest replaces the drafted post text.
type EditTextRequest struct {
	Text string `json:"text"`
}

// ClearResponse reports how many items a clear removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// PublishingMethod describes one relay for a platform.
type PublishingMethod struct {
	Method    string `json:"method"`
	Available bool   `json:"available"`
	Default   bool   `json:"default"`
	Breaker   string `json:"breaker"`
}

// PublishingMethodsResponse lists relays for a platform.
type PublishingMethodsResponse struct {
	Platform  string             `json:"platform"`
	Connected bool               `json:"connected"`
	Methods   []PublishingMethod `json:"methods"`
}

// WebhookConfig is the Make.com webhook setting.
type WebhookConfig struct {
	Success    bool   `json:"success"`
	WebhookURL string `json:"webhookUrl"`
	Message    string `json:"message,omitempty"`
}

// PostRequest is an ad-hoc post that bypasses the queue.
type PostRequest struct {
	Platform string `json:"platform"`
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl,omitempty"`
	Method   string `json:"method,omitempty"`
}

// PostResponse reports the relay outcome of an ad-hoc post.
type PostResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PostID    string `json:"postId,omitempty"`
	PostURL   string `json:"postUrl,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body written for failed API calls.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// DetailField is a labelled value rendered under a log line.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogEvent is one structured log record streamed to clients.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ItemID        int64             `json:"itemId,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	Platform      string            `json:"platform,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// LogStreamResponse is a page of log events plus the cursor for the next
// request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// StatusLine is one labelled readiness line in status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail,omitempty"`
}

// DependencySummary aggregates dependency availability.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}
