// Package stagecache stores composed staging bundles on disk and addresses
// them by opaque token.
//
// Each bundle lives in <staging_dir>/<token>/ as artifact.pdf plus a
// bundle.json sidecar recording the page numbers, source document and expiry.
// Tokens are random UUIDs and carry no meaning to clients. Bundles expire
// after the configured TTL; Get and Artifact report services.ErrTokenExpired
// for expired or evicted tokens, and Sweep removes them from disk. Put refuses
// new bundles when the staging filesystem drops below a free-space floor.
package stagecache
