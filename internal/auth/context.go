package auth

import "context"

// ctxKey is an unexported type for context keys in this package.
type ctxKey int

const callerKey ctxKey = 0

// WithCaller returns a context carrying the authenticated API key. The caller
// is threaded explicitly through the request context, never held globally.
func WithCaller(ctx context.Context, key *ApiKey) context.Context {
	return context.WithValue(ctx, callerKey, key)
}

// CallerFrom returns the authenticated API key, or nil when the request was
// not key-authenticated (signed URL, token, or security disabled).
func CallerFrom(ctx context.Context) *ApiKey {
	key, _ := ctx.Value(callerKey).(*ApiKey)
	return key
}
