package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
)

const (
	HeaderBranch   = "X-Branch-ID"
	HeaderOperator = "X-Operator-ID"
)

// BranchContext resolves the branch and operator headers into the request context.
// Every /api route is branch scoped, so a missing or malformed branch aborts the request.
func BranchContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderBranch))
		if raw == "" {
			AbortWithError(c, newValidationError("branch_id", "missing_branch", "X-Branch-ID header is required"))
			return
		}
		branchID, err := snowflake.ParseString(raw)
		if err != nil || branchID <= 0 {
			AbortWithError(c, newValidationError("branch_id", "invalid_branch", "invalid X-Branch-ID header"))
			return
		}

		ctx := branchcontext.WithBranchID(c.Request.Context(), branchID)
		ctx = branchcontext.WithOperator(ctx, c.GetHeader(HeaderOperator))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
