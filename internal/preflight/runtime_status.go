package preflight

import (
	"fmt"
	"net/url"
	"strings"

	"contentflow/internal/config"
)

// CheckRelaysFromConfig reports which posting relays have credentials in
// the config file. Webhook URLs saved through the API live in the queue
// database and are not visible here.
func CheckRelaysFromConfig(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		checkWebhook("Make.com webhook", cfg.Publishing.MakeWebhookURL),
		checkWebhook("Zapier webhook", cfg.Publishing.ZapierWebhookURL),
		checkBuffer(cfg.Buffer),
		checkLinkedInApp(cfg.LinkedIn),
	}
}

func checkWebhook(name, raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{Name: name, Detail: "Not configured"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return Result{Name: name, Detail: "Invalid URL"}
	}
	return Result{Name: name, Passed: true, Detail: parsed.Host}
}

func checkBuffer(cfg config.Buffer) Result {
	const name = "Buffer"
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return Result{Name: name, Detail: "Missing access token"}
	}
	if len(cfg.Profiles) == 0 {
		return Result{Name: name, Detail: "No profiles configured"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d profile(s)", len(cfg.Profiles))}
}

func checkLinkedInApp(cfg config.LinkedIn) Result {
	const name = "LinkedIn app"
	switch {
	case strings.TrimSpace(cfg.ClientID) == "":
		return Result{Name: name, Detail: "Missing client ID"}
	case strings.TrimSpace(cfg.ClientSecret) == "":
		return Result{Name: name, Detail: "Missing client secret"}
	default:
		return Result{Name: name, Passed: true, Detail: "Configured"}
	}
}
