package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	"github.com/smallbiznis/gglounge/internal/pricing"
	"github.com/smallbiznis/gglounge/pkg/validation"
)

type SnackLine struct {
	SnackID  string `json:"snack_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gte=1"`
}

type DiscountInput struct {
	Mode  string          `json:"mode" validate:"omitempty,oneof=percentage amount gg_points"`
	Value decimal.Decimal `json:"value" validate:"gte=0"`
}

// CreateSessionRequest books a device. Customer is created inline when CustomerID is empty.
// PlayerCount, Duration and DurationUnit are ignored for VR devices.
type CreateSessionRequest struct {
	DeviceID     string                                `json:"device_id" validate:"required"`
	CustomerID   string                                `json:"customer_id" validate:"required_without=Customer"`
	Customer     *customerdomain.CreateCustomerRequest `json:"customer" validate:"required_without=CustomerID"`
	GameID       string                                `json:"game_id" validate:"required"`
	PlayerCount  int                                   `json:"player_count" validate:"gte=0"`
	Duration     decimal.Decimal                       `json:"duration" validate:"gte=0"`
	DurationUnit string                                `json:"duration_unit" validate:"omitempty,oneof=minutes hours"`
	PaymentMode  string                                `json:"payment_mode" validate:"omitempty,max=32"`
	Snacks       []SnackLine                           `json:"snacks" validate:"dive"`
	Discount     *DiscountInput                        `json:"discount"`
	Metadata     map[string]any                        `json:"metadata"`
}

const (
	AnchorAfterEnd  = "after_end"
	AnchorBeforeEnd = "before_end"
)

// ExtendSessionRequest adds time. Anchor after_end pushes session_out by the added time;
// before_end recomputes session_out from session_in and the merged duration.
type ExtendSessionRequest struct {
	Duration     decimal.Decimal `json:"duration" validate:"gt=0"`
	DurationUnit string          `json:"duration_unit" validate:"required,oneof=minutes hours"`
	PlayerCount  int             `json:"player_count" validate:"gte=0"`
	Anchor       string          `json:"anchor" validate:"omitempty,oneof=after_end before_end"`
}

type AddSnacksRequest struct {
	Snacks []SnackLine `json:"snacks" validate:"required,min=1,dive"`
}

// CloseSessionRequest settles a session. A nil Discount keeps the discount chosen at booking.
type CloseSessionRequest struct {
	Discount    *DiscountInput  `json:"discount"`
	PaymentMode string          `json:"payment_mode" validate:"required"`
	Cash        decimal.Decimal `json:"cash" validate:"gte=0"`
	Upi         decimal.Decimal `json:"upi" validate:"gte=0"`
	Membership  decimal.Decimal `json:"membership" validate:"gte=0"`
}

type ListSessionsRequest struct {
	Status     string `form:"status"`
	DeviceID   string `form:"device_id"`
	CustomerID string `form:"customer_id"`
	Sort       string `form:"sort"`
	Order      string `form:"order"`
	Limit      int    `form:"limit"`
}

type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	ExtendSession(ctx context.Context, id string, req ExtendSessionRequest) (*Session, error)
	AddSnacksToSession(ctx context.Context, id string, req AddSnacksRequest) (*Session, error)
	CloseSession(ctx context.Context, id string, req CloseSessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, req ListSessionsRequest) ([]*Session, error)
	// RetryPending re-applies dependent writes of the session that have not been applied yet.
	RetryPending(ctx context.Context, id string) (*Session, error)
}

var (
	ErrInvalidBranch      = errors.New("invalid_branch")
	ErrInvalidID          = errors.New("invalid_id")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrSessionClosed      = errors.New("session_closed")
	ErrDeviceUnavailable  = errors.New("device_unavailable")
	ErrNotExtendable      = errors.New("session_not_extendable")
	ErrPointsAtBooking    = errors.New("points_redeemed_at_close_only")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrCustomerRequired   = errors.New("customer_required")
	ErrValidation         = validation.ErrValidation
	ErrInvalidDuration    = pricing.ErrInvalidDuration
	ErrInvalidPlayerCount = pricing.ErrInvalidPlayerCount
	ErrInsufficientStock  = catalogdomain.ErrInsufficientStock
)
