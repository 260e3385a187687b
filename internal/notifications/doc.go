// Package notifications publishes delivery events to ntfy.
//
// NewService returns an ntfy-backed Service when notifications.ntfy_topic is
// set and a no-op otherwise. Each event can be switched off in config.toml;
// suppressed events return nil without touching the network. Delivery code
// treats publish errors as advisory and only logs them.
package notifications
