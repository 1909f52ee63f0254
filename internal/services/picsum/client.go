package picsum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"contentflow/internal/fileutil"
)

// DefaultBaseURL is the public Lorem Picsum endpoint.
const DefaultBaseURL = "https://picsum.photos"

const defaultTimeout = 20 * time.Second

// HTTPDoer describes the HTTP client used by the image service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client builds image URLs and fetches them.
type Client struct {
	baseURL string
	width   int
	height  int
	client  HTTPDoer
}

// Config captures the image service settings.
type Config struct {
	BaseURL        string
	Width          int
	Height         int
	TimeoutSeconds int
}

// NewClient constructs a client. A nil doer gets an http.Client with the
// configured timeout.
func NewClient(cfg Config, doer HTTPDoer) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if doer == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &Client{baseURL: base, width: width, height: height, client: doer}
}

// SeedURL returns the deterministic image URL for seed.
func (c *Client) SeedURL(seed int) string {
	return fmt.Sprintf("%s/seed/%d/%d/%d", c.baseURL, seed, c.width, c.height)
}

// FallbackURL returns a random image of the configured size.
func (c *Client) FallbackURL() string {
	return fmt.Sprintf("%s/%d/%d", c.baseURL, c.width, c.height)
}

// Check issues a HEAD request and reports an error unless the image resolves.
func (c *Client) Check(ctx context.Context, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build image check request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("check image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("image check returned %d", resp.StatusCode)
	}
	return nil
}

// Download fetches imageURL into dest and returns the bytes written. Non-image
// responses are rejected.
func (c *Client) Download(ctx context.Context, imageURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("image download returned %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return 0, fmt.Errorf("image download returned content type %q", ct)
	}
	written, err := fileutil.WriteAtomic(dest, resp.Body)
	if err != nil {
		return written, fmt.Errorf("write image: %w", err)
	}
	if written == 0 {
		return 0, fmt.Errorf("image download returned an empty body")
	}
	return written, nil
}
