package permguard

import "context"

type callerContextKey struct{}

// Caller identifies the authenticated principal of a request.
type Caller struct {
	TenantID string
	UserID   string
}

// WithCaller attaches the authenticated caller to ctx. The engine uses it to
// label audit events and log entries.
func WithCaller(ctx context.Context, tenantID, userID string) context.Context {
	return context.WithValue(ctx, callerContextKey{}, Caller{TenantID: normalizeTenantID(tenantID), UserID: userID})
}

// CallerFromContext returns the caller attached by WithCaller.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(callerContextKey{}).(Caller)
	return c, ok
}

func normalizeTenantID(tenantID string) string {
	if tenantID == "" {
		return "0"
	}
	return tenantID
}
