// Package llm provides an OpenAI-compatible chat completion client used to
// draft post text.
//
// # Configuration
//
// Requires api_key and optionally base_url, model, temperature, max_tokens,
// referer, title and timeout. The defaults target api.openai.com with
// gpt-3.5-turbo.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive the first choice's text.
// Client.HealthCheck: one tiny completion to verify the key and model.
//
// # Errors
//
// Non-2xx responses surface as *StatusError. A response without usable text
// (no choices, or empty content after retries) matches ErrNoContent.
//
// # Retry Behaviour
//
// Requests run through a failsafe-go retry policy: HTTP 408/429/5xx, empty
// content and network timeouts are retried with jittered exponential
// backoff (1s to 10s, 3 attempts by default). A refusal is final. Context
// cancellation aborts retries immediately.
package llm
