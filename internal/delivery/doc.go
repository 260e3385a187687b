// Package delivery sends annotated pages by email and records the delivery as
// a submission.
//
// Deliver runs two named phases. Notify asks the daemon to email the pages.
// Persist assembles the combined artifact and records it with status
// email_sent. Persist never starts unless notify succeeded.
//
// Two sources share the contract: CartSource (direct path, pages held in the
// in-memory cart, artifact composed locally) and StagedSource (token path,
// artifact fetched from the daemon's staging cache).
//
// Failures are typed. *ValidationError is raised before any network call,
// *TransportError when notify fails, and *PartialFailure when notify succeeded
// but persist did not. A partial failure is reported once and never retried or
// rolled back. Every failure is also shown to the user through the Notifier.
package delivery
