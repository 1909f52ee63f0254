package queue

import (
	"strings"
	"time"

	"contentflow/internal/pipeline"
)

// Status represents where a content item sits in the scheduling lifecycle.
// The per-stage generation statuses live in Item.Stages; Status is derived
// from them and persisted so workers can poll cheaply.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusFailed     Status = "failed"
	StatusCompleted  Status = "completed"
)

// DaemonStopReason is the message recorded when an item is interrupted by shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusPaused,
	StatusFailed,
	StatusCompleted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Paused     int
	Failed     int
	Completed  int
}

// Item is one content idea moving through the generation stages.
type Item struct {
	ID            int64
	Topic         string
	Platform      string
	PostingMethod string
	Status        Status
	Stages        pipeline.State
	// LastStage is the stage most recently requested. While pending or
	// processing it is the stage a worker runs.
	LastStage pipeline.Stage
	// SingleStage is set for a manual regenerate: the item pauses after
	// LastStage instead of continuing down the chain.
	SingleStage     bool
	Text            string
	Hashtags        []string
	ImageURL        string
	ImagePath       string
	AudioPath       string
	AudioDuration   float64
	VideoPath       string
	PostID          string
	PostURL         string
	ErrorMessage    string
	ErrorCode       string
	FailedStage     pipeline.Stage
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when a worker currently owns the item.
func (i Item) IsProcessing() bool {
	return i.Status == StatusProcessing
}

// Start discards previous results and requests the text stage as the
// head of a full chain.
func (i *Item) Start() {
	i.Stages.Start()
	i.LastStage = pipeline.StageText
	i.SingleStage = false
	i.Text = ""
	i.Hashtags = nil
	i.ImageURL = ""
	i.ImagePath = ""
	i.AudioPath = ""
	i.AudioDuration = 0
	i.VideoPath = ""
	i.PostID = ""
	i.PostURL = ""
	i.clearFailure()
	i.Status = StatusPending
	i.SetProgress(pipeline.StageText.Label(), "Queued", 0)
}

// Begin requests a stage as part of the automatic chain.
func (i *Item) Begin(stage pipeline.Stage) error {
	if err := i.Stages.Begin(stage); err != nil {
		return err
	}
	i.request(stage, false)
	return nil
}

// Regenerate requests a single stage. The item pauses once it completes.
func (i *Item) Regenerate(stage pipeline.Stage) error {
	if err := i.Stages.Regenerate(stage); err != nil {
		return err
	}
	i.request(stage, true)
	return nil
}

func (i *Item) request(stage pipeline.Stage, single bool) {
	i.LastStage = stage
	i.SingleStage = single
	i.clearFailure()
	i.Status = StatusPending
	i.LastHeartbeat = nil
	i.SetProgress(stage.Label(), "Queued", 0)
}

// Complete marks the running stage successful and settles the overall
// status. The caller decides whether to begin the next stage.
func (i *Item) Complete(stage pipeline.Stage) error {
	if err := i.Stages.Complete(stage); err != nil {
		return err
	}
	i.LastHeartbeat = nil
	i.SetProgressComplete(stage.Label(), stage.Label()+" ready")
	i.Status = i.settledStatus()
	return nil
}

// Fail marks the running stage as errored and halts the item.
func (i *Item) Fail(stage pipeline.Stage, message, code string) error {
	if err := i.Stages.Fail(stage); err != nil {
		return err
	}
	i.Status = StatusFailed
	i.FailedStage = stage
	i.ErrorMessage = message
	i.ErrorCode = code
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.ProgressStage = "Failed"
	i.LastHeartbeat = nil
	return nil
}

// Pause parks an item with nothing running until the user acts on it.
func (i *Item) Pause(message string) {
	i.Status = StatusPaused
	i.LastHeartbeat = nil
	if message != "" {
		i.ProgressMessage = message
	}
}

func (i *Item) settledStatus() Status {
	switch {
	case i.Stages.Terminal():
		return StatusCompleted
	case hasFailed(i.Stages):
		return StatusFailed
	case hasActive(i.Stages):
		return StatusPending
	default:
		return StatusPaused
	}
}

func hasFailed(state pipeline.State) bool {
	_, ok := state.Failed()
	return ok
}

func hasActive(state pipeline.State) bool {
	_, ok := state.Active()
	return ok
}

func (i *Item) clearFailure() {
	i.ErrorMessage = ""
	i.ErrorCode = ""
	i.FailedStage = ""
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// ProcessingLane partitions the stages between workers. Rendering the video
// is slow and runs on its own lane so text drafting for other items is not
// held up behind ffmpeg.
type ProcessingLane string

const (
	LaneGenerate ProcessingLane = "generate"
	LaneRender   ProcessingLane = "render"
)

// LaneForStage maps a stage onto the lane that runs it.
func LaneForStage(stage pipeline.Stage) ProcessingLane {
	if stage == pipeline.StageVideo {
		return LaneRender
	}
	return LaneGenerate
}

// LaneForItem maps a queue item to its processing lane for observability purposes.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneGenerate
	}
	return LaneForStage(item.LastStage)
}

// Connection is a stored OAuth grant for direct posting.
type Connection struct {
	Platform     string
	AccessToken  string
	RefreshToken string
	AuthorURN    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the grant is still usable at now.
func (c *Connection) Active(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return now.Before(c.ExpiresAt)
}
