package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/gglounge/pkg/db/pagination"
)

const (
	ActionSessionCreated     = "session.created"
	ActionSessionExtended    = "session.extended"
	ActionSessionSnacksAdded = "session.snacks_added"
	ActionSessionClosed      = "session.closed"
	ActionWalletTopUp        = "customer.wallet_topup"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// AuditLog resolves branch and operator from ctx.
	AuditLog(ctx context.Context, action string, targetType string, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidBranch    = errors.New("invalid_branch")
	ErrInvalidPageToken = pagination.ErrInvalidPageToken
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
