package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "operator_ip"
	ctxKeyUserAgent contextKey = "operator_ua"
)

// ContextWithIPAddress records the operator's address for run history.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent records the operator's client for run history.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// GetIPAddressFromContext extracts IP address from context.
func GetIPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// GetUserAgentFromContext extracts User-Agent from context.
func GetUserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// operatorContext carries the operator fields of ctx into a detached run
// context.
func operatorContext(parent, from context.Context) context.Context {
	ctx := ContextWithIPAddress(parent, GetIPAddressFromContext(from))
	return ContextWithUserAgent(ctx, GetUserAgentFromContext(from))
}
