package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"contentflow/internal/config"
	"contentflow/internal/deps"
	"contentflow/internal/services/llm"
)

// CheckLLM verifies that the chat completion API is reachable and the key is
// valid. It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckOpenAIKey reports whether a usable API key is configured, without
// calling the API.
func CheckOpenAIKey(cfg *config.Config) Result {
	const name = "OpenAI API key"
	if cfg.OpenAIConfigured() {
		return Result{Name: name, Passed: true, Detail: "Configured"}
	}
	if cfg.LLM.APIKey == "" {
		return Result{Name: name, Detail: "Missing (set llm.api_key or OPENAI_API_KEY)"}
	}
	return Result{Name: name, Detail: "Too short to be a valid key"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the stages run. Both the
// daemon and the CLI status command use this list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	results := []deps.Status{
		deps.CheckFFmpeg(cfg.Video.FFmpegBinary),
		deps.CheckSpeech(cfg.Speech.Binary),
	}
	if cfg.Video.FontFile == "" {
		results = append(results, deps.FontConfig.Resolve(""))
	}
	return results
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
