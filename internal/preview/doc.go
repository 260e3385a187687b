// Package preview opens a second browsing context for a staged bundle without
// tripping popup suppression.
//
// Window creation is only allowed synchronously inside the user action, while
// staging is asynchronous, so Launch follows a fixed protocol: open a window
// and write a "preparing preview" placeholder, stage the cart, then either
// navigate the already-open window to the preview location or close it when
// staging fails. When the open itself is blocked, Launch falls back to a
// best-effort direct navigation once staging completes and reports
// ErrPopupBlocked if that is refused too.
//
// The preview location carries the token in its path and optional prefill
// data (to, subject, body) as query parameters. ParsePreview and
// Prefill.Consume let the resolving context read that data exactly once.
package preview
