package services

import "context"

// contextKey is typed by the value it carries, so lookups need no type switch.
type contextKey[T comparable] struct{ name string }

var (
	submissionIDKey = contextKey[int64]{"submission_id"}
	tokenKey        = contextKey[string]{"staging_token"}
	requestIDKey    = contextKey[string]{"request_id"}
)

func with[T comparable](ctx context.Context, key contextKey[T], v T) context.Context {
	var zero T
	if v == zero {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func from[T comparable](ctx context.Context, key contextKey[T]) (T, bool) {
	v, ok := ctx.Value(key).(T)
	var zero T
	return v, ok && v != zero
}

// WithSubmissionID tags ctx with a stored submission. Zero is ignored.
func WithSubmissionID(ctx context.Context, id int64) context.Context {
	return with(ctx, submissionIDKey, id)
}

func SubmissionIDFromContext(ctx context.Context) (int64, bool) {
	return from(ctx, submissionIDKey)
}

// WithToken tags ctx with the staging token being resolved.
func WithToken(ctx context.Context, token string) context.Context {
	return with(ctx, tokenKey, token)
}

func TokenFromContext(ctx context.Context) (string, bool) {
	return from(ctx, tokenKey)
}

// WithRequestID tags ctx with the correlation id assigned by the server middleware
// or forwarded by the api client.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return from(ctx, requestIDKey)
}
