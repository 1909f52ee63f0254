package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"contentflow/internal/pipeline"
)

const itemColumns = "id, topic, platform, posting_method, status, text_status, image_status, audio_status, video_status, social_status, last_stage, single_stage, generated_text, hashtags, image_url, image_path, audio_path, audio_duration, video_path, post_id, post_url, error_message, error_code, failed_stage, progress_stage, progress_percent, progress_message, last_heartbeat, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		topic            string
		platform         string
		postingMethod    sql.NullString
		statusStr        string
		textStatus       string
		imageStatus      string
		audioStatus      string
		videoStatus      string
		socialStatus     string
		lastStage        sql.NullString
		singleStage      sql.NullInt64
		generatedText    sql.NullString
		hashtags         sql.NullString
		imageURL         sql.NullString
		imagePath        sql.NullString
		audioPath        sql.NullString
		audioDuration    sql.NullFloat64
		videoPath        sql.NullString
		postID           sql.NullString
		postURL          sql.NullString
		errorMessage     sql.NullString
		errorCode        sql.NullString
		failedStage      sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&topic,
		&platform,
		&postingMethod,
		&statusStr,
		&textStatus,
		&imageStatus,
		&audioStatus,
		&videoStatus,
		&socialStatus,
		&lastStage,
		&singleStage,
		&generatedText,
		&hashtags,
		&imageURL,
		&imagePath,
		&audioPath,
		&audioDuration,
		&videoPath,
		&postID,
		&postURL,
		&errorMessage,
		&errorCode,
		&failedStage,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		Topic:         topic,
		Platform:      platform,
		PostingMethod: postingMethod.String,
		Status:        Status(statusStr),
		Stages: pipeline.StateFrom(map[pipeline.Stage]pipeline.Status{
			pipeline.StageText:       pipeline.Status(textStatus),
			pipeline.StageImage:      pipeline.Status(imageStatus),
			pipeline.StageAudio:      pipeline.Status(audioStatus),
			pipeline.StageVideo:      pipeline.Status(videoStatus),
			pipeline.StageSocialPost: pipeline.Status(socialStatus),
		}),
		LastStage:       pipeline.Stage(lastStage.String),
		SingleStage:     singleStage.Valid && singleStage.Int64 != 0,
		Text:            generatedText.String,
		Hashtags:        decodeHashtags(hashtags.String),
		ImageURL:        imageURL.String,
		ImagePath:       imagePath.String,
		AudioPath:       audioPath.String,
		AudioDuration:   audioDuration.Float64,
		VideoPath:       videoPath.String,
		PostID:          postID.String,
		PostURL:         postURL.String,
		ErrorMessage:    errorMessage.String,
		ErrorCode:       errorCode.String,
		FailedStage:     pipeline.Stage(failedStage.String),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func encodeHashtags(tags []string) any {
	if len(tags) == 0 {
		return nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	return string(data)
}

func decodeHashtags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
