// Package preflight provides readiness checks for the filesystem paths and
// external services redline depends on.
//
// These checks run in two contexts:
//   - The daemon logs a summary at startup so misconfiguration shows up before
//     the first delivery fails.
//   - The CLI "redline preflight" command prints each result as a table.
//
// Service checks are gated by configuration; unconfigured services are skipped.
package preflight
