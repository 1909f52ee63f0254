// Package config loads, normalizes, and validates contentflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file when present, and honours
// environment fallbacks such as OPENAI_API_KEY and MAKE_WEBHOOK_URL. The
// Config type centralizes every knob the daemon and CLI need so staging
// directories, generation engines, and publishing credentials are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
