// Package staging hands the contents of a capture cart to the daemon and
// returns the opaque token that stands for the composed bundle.
//
// Stage refuses an empty cart before any network call. Pages are sent in
// ascending page order. Any transport failure or non-2xx response is fatal to
// the call and no token is produced. Tokens are opaque: they are never parsed,
// and Resolve must be expected to fail later with services.ErrTokenExpired once
// the daemon evicts the bundle.
package staging
