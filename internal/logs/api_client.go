package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"contentflow/internal/api"
)

// ErrAPIUnavailable means the daemon HTTP API could not be reached.
var ErrAPIUnavailable = errors.New("log API unavailable")

// StreamClient reads structured log events from the daemon HTTP API.
type StreamClient struct {
	endpoint *url.URL
	token    string
	http     *http.Client
}

// StreamQuery holds the /api/logs query parameters. Zero values are left
// out of the request.
type StreamQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	Stage     string
	Platform  string
	ItemID    int64
}

func (q StreamQuery) values() url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			values.Set(key, value)
		}
	}
	if q.Since > 0 {
		set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		set("follow", "1")
	}
	if q.Tail {
		set("tail", "1")
	}
	set("component", q.Component)
	set("stage", q.Stage)
	set("platform", q.Platform)
	if q.ItemID > 0 {
		set("item", strconv.FormatInt(q.ItemID, 10))
	}
	return values
}

// NewStreamClient returns nil when bind is empty. Wildcard bind addresses
// are dialed on loopback.
func NewStreamClient(bind, token string) (*StreamClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		if host, port, err := net.SplitHostPort(bind); err == nil {
			switch host {
			case "", "0.0.0.0", "::":
				bind = net.JoinHostPort("127.0.0.1", port)
			}
		}
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	return &StreamClient{
		endpoint: &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/api/logs"},
		token:    strings.TrimSpace(token),
		// Follow requests block until an event arrives, so only the
		// caller's context bounds them.
		http: &http.Client{},
	}, nil
}

// Fetch performs one /api/logs request.
func (c *StreamClient) Fetch(ctx context.Context, q StreamQuery) (api.LogStreamResponse, error) {
	var page api.LogStreamResponse
	if c == nil {
		return page, ErrAPIUnavailable
	}
	target := *c.endpoint
	target.RawQuery = q.values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return page, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return page, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return page, responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return page, fmt.Errorf("decode log events: %w", err)
	}
	return page, nil
}

// responseError prefers the API's error message over the bare status.
func responseError(resp *http.Response) error {
	var body api.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return fmt.Errorf("log api: %s (status %d)", body.Message, resp.StatusCode)
	}
	return fmt.Errorf("log api returned status %d", resp.StatusCode)
}

// IsAPIUnavailable reports whether err means the API could not be reached,
// as opposed to the API answering with an error.
func IsAPIUnavailable(err error) bool {
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
