// Package requestctx provides request-scoped values (caller identity, client IP) set by middleware.
package requestctx

import "context"

type contextKey struct{ name string }

var (
	userIDKey    = &contextKey{"user_id"}
	ipAddressKey = &contextKey{"ip_address"}
)

// SetUserID stores the authenticated user identifier in the context.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user identifier, or "" for anonymous callers.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// SetIPAddress stores the resolved client address in the context.
func SetIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey, ip)
}

// IPAddress returns the client address, or "" if it was never resolved.
func IPAddress(ctx context.Context) string {
	v, _ := ctx.Value(ipAddressKey).(string)
	return v
}
