// Package daemon coordinates the long-running redline process.
//
// It wires configuration, the submissions store, the staging cache and the
// HTTP server into a single lifecycle with flock-based locking to prevent
// multiple instances. A background sweeper evicts expired staged bundles on
// the configured interval.
//
// Keep orchestration logic here: request handling lives in internal/server
// while the daemon focuses on startup, shutdown, and status.
package daemon
