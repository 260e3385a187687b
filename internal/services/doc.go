// Package services defines shared utilities consumed by the client core and
// the backend daemon.
//
// Key responsibilities:
//   - Context helpers that stamp submission IDs, staging tokens, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, so validation, transport
//     and expiry failures can be told apart with errors.Is regardless of the
//     layer that produced them.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the repository.
package services
