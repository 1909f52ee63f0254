package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Setting keys persisted by the API.
const (
	SettingMakeWebhookURL   = "make_webhook_url"
	SettingZapierWebhookURL = "zapier_webhook_url"
)

// GetSetting returns a stored value and whether it was present.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutSetting stores a value, replacing any previous one. An empty value
// deletes the key.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("setting key is required")
	}
	if value == "" {
		if err := s.execWithoutResultRetry(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete setting %s: %w", key, err)
		}
		return nil
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// SaveConnection stores or replaces the OAuth grant for a platform.
func (s *Store) SaveConnection(ctx context.Context, conn Connection) error {
	platform := strings.ToLower(strings.TrimSpace(conn.Platform))
	if platform == "" {
		return errors.New("connection platform is required")
	}
	if conn.AccessToken == "" {
		return errors.New("connection access token is required")
	}
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO connections (platform, access_token, refresh_token, author_urn, expires_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(platform) DO UPDATE SET
             access_token = excluded.access_token,
             refresh_token = excluded.refresh_token,
             author_urn = excluded.author_urn,
             expires_at = excluded.expires_at,
             updated_at = excluded.updated_at`,
		platform,
		conn.AccessToken,
		nullableString(conn.RefreshToken),
		nullableString(conn.AuthorURN),
		formatTime(conn.ExpiresAt),
		now,
		now,
	); err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	return nil
}

// GetConnection returns the stored grant for a platform, or nil when none exists.
func (s *Store) GetConnection(ctx context.Context, platform string) (*Connection, error) {
	var (
		conn         Connection
		refreshToken sql.NullString
		authorURN    sql.NullString
		expiresRaw   string
		createdRaw   string
		updatedRaw   string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT platform, access_token, refresh_token, author_urn, expires_at, created_at, updated_at
         FROM connections WHERE platform = ?`,
		strings.ToLower(strings.TrimSpace(platform)),
	).Scan(&conn.Platform, &conn.AccessToken, &refreshToken, &authorURN, &expiresRaw, &createdRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	conn.RefreshToken = refreshToken.String
	conn.AuthorURN = authorURN.String
	if expires, err := parseTimeString(expiresRaw); err == nil {
		conn.ExpiresAt = expires
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		conn.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		conn.UpdatedAt = updated
	}
	return &conn, nil
}

// DeleteConnection forgets the grant for a platform.
func (s *Store) DeleteConnection(ctx context.Context, platform string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM connections WHERE platform = ?`, strings.ToLower(strings.TrimSpace(platform)))
	if err != nil {
		return false, fmt.Errorf("delete connection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SaveOAuthState records a pending authorization request.
func (s *Store) SaveOAuthState(ctx context.Context, state, platform string, expiresAt time.Time) error {
	if state == "" {
		return errors.New("oauth state is required")
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO oauth_states (state, platform, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		state,
		strings.ToLower(strings.TrimSpace(platform)),
		formatTime(expiresAt),
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState deletes a pending state and returns the platform it was
// issued for. ok is false when the state is unknown or expired at now.
// Expired states are purged along the way.
func (s *Store) ConsumeOAuthState(ctx context.Context, state string, now time.Time) (platform string, ok bool, err error) {
	if state == "" {
		return "", false, nil
	}
	var expiresRaw string
	err = s.db.QueryRowContext(ctx, `SELECT platform, expires_at FROM oauth_states WHERE state = ?`, state).Scan(&platform, &expiresRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup oauth state: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM oauth_states WHERE state = ? OR expires_at < ?`, state, formatTime(now)); err != nil {
		return "", false, fmt.Errorf("consume oauth state: %w", err)
	}
	expires, parseErr := parseTimeString(expiresRaw)
	if parseErr != nil || !now.Before(expires) {
		return "", false, nil
	}
	return platform, true, nil
}
