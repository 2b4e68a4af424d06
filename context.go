package authcore

import "context"

type contextKey uint8

const clientIPKey contextKey = iota

// WithClientIP annotates the context with the caller's network address so
// audit events can record it. HTTP layers typically set it per request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext reads the address set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
