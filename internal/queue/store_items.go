package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"contentflow/internal/pipeline"
)

// NewItem inserts a content idea and requests the text stage so a worker
// picks it up on the next poll.
func (s *Store) NewItem(ctx context.Context, topic, platform, method string) (*Item, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if strings.TrimSpace(platform) == "" {
		return nil, errors.New("platform is required")
	}

	item := &Item{Topic: topic, Platform: platform, PostingMethod: method}
	item.Start()
	statuses := item.Stages.Map()

	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO items (
            topic, platform, posting_method, status,
            text_status, image_status, audio_status, video_status, social_status,
            last_stage, single_stage, progress_stage, progress_percent, progress_message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Topic,
		item.Platform,
		nullableString(item.PostingMethod),
		item.Status,
		statuses[pipeline.StageText],
		statuses[pipeline.StageImage],
		statuses[pipeline.StageAudio],
		statuses[pipeline.StageVideo],
		statuses[pipeline.StageSocialPost],
		nullableString(string(item.LastStage)),
		boolToInt(item.SingleStage),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier. It returns nil, nil when the item
// does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	statuses := item.Stages.Map()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE items
         SET topic = ?, platform = ?, posting_method = ?, status = ?,
             text_status = ?, image_status = ?, audio_status = ?, video_status = ?, social_status = ?,
             last_stage = ?, single_stage = ?, generated_text = ?, hashtags = ?,
             image_url = ?, image_path = ?, audio_path = ?, audio_duration = ?, video_path = ?,
             post_id = ?, post_url = ?, error_message = ?, error_code = ?, failed_stage = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		item.Topic,
		item.Platform,
		nullableString(item.PostingMethod),
		item.Status,
		statuses[pipeline.StageText],
		statuses[pipeline.StageImage],
		statuses[pipeline.StageAudio],
		statuses[pipeline.StageVideo],
		statuses[pipeline.StageSocialPost],
		nullableString(string(item.LastStage)),
		boolToInt(item.SingleStage),
		nullableString(item.Text),
		encodeHashtags(item.Hashtags),
		nullableString(item.ImageURL),
		nullableString(item.ImagePath),
		nullableString(item.AudioPath),
		item.AudioDuration,
		nullableString(item.VideoPath),
		nullableString(item.PostID),
		nullableString(item.PostURL),
		nullableString(item.ErrorMessage),
		nullableString(item.ErrorCode),
		nullableString(string(item.FailedStage)),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		formatTime(item.UpdatedAt),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM items`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return scanItems(rows)
}

// ActiveItemIDs returns the ids of every queued item.
func (s *Store) ActiveItemIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM items`)
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// NextRunnable returns the oldest pending item whose requested stage is one
// of stages. It returns nil, nil when nothing is waiting.
func (s *Store) NextRunnable(ctx context.Context, stages ...pipeline.Stage) (*Item, error) {
	if len(stages) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(stages)+1)
	args = append(args, StatusPending)
	for _, stage := range stages {
		args = append(args, string(stage))
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE status = ? AND last_stage IN (` + makePlaceholders(len(stages)) + `) ORDER BY created_at, id LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next runnable: %w", err)
	}
	return item, nil
}

// Remove deletes an item by identifier. Items a worker is processing are
// left in place and reported as not removed.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM items WHERE id = ? AND status != ?`, id, StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed items.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every item that is not being worked on.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM items WHERE status != ?`, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed items.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM items WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
