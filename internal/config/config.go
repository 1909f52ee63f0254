package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir    string `toml:"staging_dir"`
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	APIBind       string `toml:"api_bind"`
	APIToken      string `toml:"api_token"`
	PublicBaseURL string `toml:"public_base_url"`
}

// LLM contains the chat completion settings used to draft post text.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Image contains settings for the placeholder image service.
type Image struct {
	BaseURL        string `toml:"base_url"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Speech contains settings for narration synthesis.
type Speech struct {
	Binary         string  `toml:"binary"`
	Voice          string  `toml:"voice"`
	Rate           float64 `toml:"rate"`
	Pitch          float64 `toml:"pitch"`
	Volume         float64 `toml:"volume"`
	WordsPerMinute int     `toml:"words_per_minute"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Video contains settings for preview rendering.
type Video struct {
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	DurationSeconds int    `toml:"duration_seconds"`
	FontFile        string `toml:"font_file"`
	AccentColor     string `toml:"accent_color"`
	Branding        string `toml:"branding"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Publishing contains relay selection and webhook settings.
type Publishing struct {
	DefaultMethod           string `toml:"default_method"`
	MakeWebhookURL          string `toml:"make_webhook_url"`
	ZapierWebhookURL        string `toml:"zapier_webhook_url"`
	ShareURL                string `toml:"share_url"`
	RequestTimeout          int    `toml:"request_timeout"`
	BreakerFailureThreshold int    `toml:"breaker_failure_threshold"`
	BreakerFailureWindow    int    `toml:"breaker_failure_window"`
	BreakerDelaySeconds     int    `toml:"breaker_delay_seconds"`
}

// LinkedIn contains OAuth application settings for direct posting.
type LinkedIn struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthorURN    string `toml:"author_urn"`
	AuthBaseURL  string `toml:"auth_base_url"`
	APIBaseURL   string `toml:"api_base_url"`
}

// Buffer contains Buffer scheduling API settings.
type Buffer struct {
	AccessToken string            `toml:"access_token"`
	BaseURL     string            `toml:"base_url"`
	Profiles    map[string]string `toml:"profiles"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Published      bool   `toml:"published"`
	Errors         bool   `toml:"errors"`
	Queue          bool   `toml:"queue"`
	QueueMinItems  int    `toml:"queue_min_items"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval      int  `toml:"queue_poll_interval"`
	HeartbeatInterval      int  `toml:"heartbeat_interval"`
	HeartbeatTimeout       int  `toml:"heartbeat_timeout"`
	RequirePublishApproval bool `toml:"require_publish_approval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for contentflow.
//
// Configuration sections by subsystem:
//   - Paths: directories, API bind address and token
//   - LLM: chat completion settings for text drafting
//   - Image: placeholder image service
//   - Speech: narration engine
//   - Video: ffmpeg preview rendering
//   - Publishing: relay defaults, webhooks, circuit breaker
//   - LinkedIn: OAuth application for direct posting
//   - Buffer: scheduling API token and profiles
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and approval gate
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Image         Image         `toml:"image"`
	Speech        Speech        `toml:"speech"`
	Video         Video         `toml:"video"`
	Publishing    Publishing    `toml:"publishing"`
	LinkedIn      LinkedIn      `toml:"linkedin"`
	Buffer        Buffer        `toml:"buffer"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files next to the config file and in the working
// directory. Variables already present in the environment win.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("contentflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite queue database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "contentflow.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "contentflow.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "contentflow.pid")
}

// ItemStagingDir returns the working directory for one content item.
func (c *Config) ItemStagingDir(itemID int64) string {
	return filepath.Join(c.Paths.StagingDir, fmt.Sprintf("item-%d", itemID))
}

// LinkedInRedirectURI returns the OAuth callback URL registered with LinkedIn.
func (c *Config) LinkedInRedirectURI() string {
	if uri := strings.TrimSpace(c.LinkedIn.RedirectURI); uri != "" {
		return uri
	}
	return strings.TrimRight(c.Paths.PublicBaseURL, "/") + "/api/auth/linkedin/callback"
}

// OpenAIConfigured reports whether an API key that looks usable is present.
func (c *Config) OpenAIConfigured() bool {
	return len(strings.TrimSpace(c.LLM.APIKey)) > minAPIKeyLength
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
