// Package logging builds the slog loggers used across redline.
//
// It offers a console handler tuned for operators and a JSON handler for
// machine ingestion, helpers that stamp component and request context onto
// records, and WarnWithContext/ErrorWithContext which enforce the
// event_type, error_hint and impact fields on warnings and errors.
package logging
