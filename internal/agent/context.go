package agent

import "context"

type contextKey int

const (
	sessionIDKey contextKey = iota
	delegationDepthKey
)

func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithDelegationDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, delegationDepthKey, depth)
}

func DelegationDepthFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(delegationDepthKey).(int); ok {
		return v
	}
	return 0
}
