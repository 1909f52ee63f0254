package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"contentflow/internal/services/procexec"
)

// ErrUnavailable means the configured engine binary cannot be found.
var ErrUnavailable = errors.New("speech synthesis engine unavailable")

// DefaultWordsPerMinute is the speaking rate used for duration estimates.
const DefaultWordsPerMinute = 150

// espeak-ng values that correspond to a 1.0 rate, pitch and volume.
const (
	engineDefaultSpeed     = 175
	engineDefaultPitch     = 50
	engineDefaultAmplitude = 100
)

// Config captures the narration settings.
type Config struct {
	Binary         string
	Voice          string
	Rate           float64
	Pitch          float64
	Volume         float64
	WordsPerMinute int
	TimeoutSeconds int
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec procexec.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLookPath overrides binary resolution (primarily for tests).
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(c *Client) {
		if lookPath != nil {
			c.lookPath = lookPath
		}
	}
}

// Client wraps the text-to-speech command line.
type Client struct {
	cfg      Config
	timeout  time.Duration
	exec     procexec.Executor
	lookPath func(string) (string, error)
}

// New constructs a speech client.
func New(cfg Config, opts ...Option) *Client {
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	if cfg.Binary == "" {
		cfg.Binary = "espeak-ng"
	}
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = DefaultWordsPerMinute
	}
	client := &Client{
		cfg:      cfg,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		exec:     procexec.CommandExecutor{},
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Available reports whether the engine binary resolves.
func (c *Client) Available() error {
	if _, err := c.lookPath(c.cfg.Binary); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.cfg.Binary, err)
	}
	return nil
}

// Binary returns the configured engine command.
func (c *Client) Binary() string {
	return c.cfg.Binary
}

// Synthesize renders text to a WAV file at dest and returns the estimated
// narration duration.
func (c *Client) Synthesize(ctx context.Context, text, dest string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, errors.New("speech: text required")
	}
	if err := c.Available(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("speech: create output directory: %w", err)
	}

	scriptPath := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".txt"
	if err := os.WriteFile(scriptPath, []byte(text), 0o644); err != nil {
		return 0, fmt.Errorf("speech: write script: %w", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.exec.Run(runCtx, c.cfg.Binary, c.Args(scriptPath, dest), nil); err != nil {
		return 0, fmt.Errorf("speech: synthesize: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("speech: output missing: %w", err)
	}
	if info.Size() == 0 {
		return 0, errors.New("speech: engine produced an empty file")
	}
	return EstimateDuration(text, c.cfg.WordsPerMinute), nil
}

// Args builds the engine arguments. A 1.0 rate, pitch or volume leaves the
// engine default in place.
func (c *Client) Args(scriptPath, dest string) []string {
	args := []string{"-w", dest}
	if voice := strings.TrimSpace(c.cfg.Voice); voice != "" {
		args = append(args, "-v", voice)
	}
	if c.cfg.Rate > 0 && c.cfg.Rate != 1 {
		args = append(args, "-s", strconv.Itoa(scaled(engineDefaultSpeed, c.cfg.Rate, 80, 450)))
	}
	if c.cfg.Pitch > 0 && c.cfg.Pitch != 1 {
		args = append(args, "-p", strconv.Itoa(scaled(engineDefaultPitch, c.cfg.Pitch, 0, 99)))
	}
	if c.cfg.Volume > 0 && c.cfg.Volume != 1 {
		args = append(args, "-a", strconv.Itoa(scaled(engineDefaultAmplitude, c.cfg.Volume, 0, 200)))
	}
	return append(args, "-f", scriptPath)
}

func scaled(base int, factor float64, lo, hi int) int {
	v := int(math.Round(float64(base) * factor))
	return max(lo, min(hi, v))
}

// EstimateDuration approximates how long text takes to read aloud.
func EstimateDuration(text string, wordsPerMinute int) time.Duration {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	seconds := float64(words) / float64(wordsPerMinute) * 60
	return time.Duration(seconds * float64(time.Second))
}
