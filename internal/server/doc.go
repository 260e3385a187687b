// Package server implements the redline daemon's HTTP surface.
//
// Routes live under /api and require the configured bearer token when one is
// set. The /preview/{token} pages are unauthenticated; the staging token is the
// capability. Handlers compose annotated pages into PDF artifacts, hold staged
// bundles in the stage cache, relay email through the mailer and persist
// submissions in the SQLite store.
//
// Domain failures carry services sentinels and are mapped onto status codes in
// one place (mapDomainError). Expired or unknown staging tokens answer 404 with
// kind "expired" so clients can distinguish them from other missing resources.
package server
