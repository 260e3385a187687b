// Package api defines the wire types exchanged with the redline daemon and the
// HTTP client used by every client-side component.
//
// # Key Types
//
// Page: one (page number, PNG raster) pair; rasters travel base64-encoded in
// JSON. Slices of Page are always sent in ascending page order.
//
// StageResponse: the opaque staging token plus the page numbers it covers.
//
// Submission: transport form of a persisted submission record.
//
// # Client
//
// Client wraps the daemon routes (staging, email, submissions, status). Network
// failures are tagged services.ErrTransport; non-2xx responses become a
// *StatusError that unwraps to the matching services sentinel so callers can
// classify with errors.Is.
//
// DTOs use camelCase JSON tags. Timestamps are RFC3339 with milliseconds.
package api
