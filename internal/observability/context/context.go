package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/gglounge/internal/branchcontext"
)

type requestIDKey struct{}

// WithRequestID stores the inbound request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// BranchIDFromContext returns the branch ID as a string for log and span fields.
func BranchIDFromContext(ctx context.Context) string {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok {
		return ""
	}
	return branchID.String()
}

// OperatorFromContext returns the console operator reference.
func OperatorFromContext(ctx context.Context) string {
	return branchcontext.OperatorFromContext(ctx)
}
