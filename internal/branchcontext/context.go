package branchcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// BranchContextKey is the request context key for the active lounge branch ID.
type BranchContextKey struct{}

// OperatorContextKey is the request context key for the console operator.
type OperatorContextKey struct{}

// WithBranchID stores the branch ID in the context.
func WithBranchID(ctx context.Context, branchID snowflake.ID) context.Context {
	return context.WithValue(ctx, BranchContextKey{}, branchID)
}

// BranchIDFromContext returns the branch ID from context, if set.
func BranchIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(BranchContextKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}

// WithOperator stores the operator (console user) reference in the context.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return ctx
	}
	return context.WithValue(ctx, OperatorContextKey{}, operatorID)
}

// OperatorFromContext returns the operator reference, or "" when absent.
func OperatorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(OperatorContextKey{}).(string)
	return value
}
