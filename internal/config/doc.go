// Package config loads, normalizes, and validates redline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REDLINE_API_TOKEN and REDLINE_SMTP_PASSWORD. The Config type centralizes
// every knob the daemon and CLI need, so the staging cache, submission
// database, SMTP relay and annotation defaults are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
