package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "Active"
	SessionStatusClosed SessionStatus = "Closed"
)

// SessionKind only changes input validation and the earn base.
type SessionKind string

const (
	SessionKindStandard SessionKind = "standard"
	SessionKindVR       SessionKind = "vr"
)

// Session is one occupancy of a device by a customer.
// TotalAmount is SessionAmount + SnacksTotal; FinalAmount is TotalAmount less the active discount.
type Session struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	BranchID   snowflake.ID `json:"branch_id" gorm:"not null;index"`
	DeviceID   snowflake.ID `json:"device_id" gorm:"not null;index"`
	CustomerID snowflake.ID `json:"customer_id" gorm:"not null;index"`
	GameID     snowflake.ID `json:"game_id" gorm:"not null"`
	CreatedBy  string       `json:"created_by,omitempty" gorm:"type:text"`

	Kind         SessionKind     `json:"kind" gorm:"type:text;not null"`
	PlayerCount  int             `json:"player_count" gorm:"not null"`
	SessionIn    time.Time       `json:"session_in" gorm:"not null"`
	SessionOut   time.Time       `json:"session_out" gorm:"not null"`
	Duration     decimal.Decimal `json:"duration" gorm:"type:numeric;not null"`
	DurationUnit string          `json:"duration_unit" gorm:"type:text;not null"`

	SessionAmount      decimal.Decimal `json:"session_amount" gorm:"type:numeric;not null;default:0"`
	SnacksTotal        decimal.Decimal `json:"snacks_total" gorm:"type:numeric;not null;default:0"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:numeric;not null;default:0"`
	DiscountType       string          `json:"discount_type,omitempty" gorm:"type:text"`
	DiscountValue      decimal.Decimal `json:"discount_value" gorm:"type:numeric;not null;default:0"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage" gorm:"type:numeric;not null;default:0"`
	DiscountAmount     decimal.Decimal `json:"discount_amount" gorm:"type:numeric;not null;default:0"`
	GGPointsEarned     int64           `json:"gg_points_earned" gorm:"column:gg_points_earned;not null;default:0"`
	RewardPointsUsed   int64           `json:"reward_points_used" gorm:"not null;default:0"`
	GGPrice            decimal.Decimal `json:"gg_price" gorm:"column:gg_price;type:numeric;not null;default:0"`
	FinalAmount        decimal.Decimal `json:"final_amount" gorm:"type:numeric;not null;default:0"`
	AmountPaid         decimal.Decimal `json:"amount_paid" gorm:"type:numeric;not null;default:0"`

	PaymentMode      string          `json:"payment_mode,omitempty" gorm:"type:text"`
	CashAmount       decimal.Decimal `json:"cash_amount" gorm:"type:numeric;not null;default:0"`
	UpiAmount        decimal.Decimal `json:"upi_amount" gorm:"type:numeric;not null;default:0"`
	MembershipAmount decimal.Decimal `json:"membership_amount" gorm:"type:numeric;not null;default:0"`

	Status          SessionStatus     `json:"status" gorm:"type:text;not null;index"`
	ReceiptNo       string            `json:"receipt_no,omitempty" gorm:"type:text"`
	ExtensionCount  int               `json:"extension_count" gorm:"not null;default:0"`
	SnackBatchCount int               `json:"snack_batch_count" gorm:"not null;default:0"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Snacks   []SessionSnack `json:"snacks,omitempty" gorm:"-"`
	Warnings []string       `json:"warnings,omitempty" gorm:"-"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) IsClosed() bool { return s.Status == SessionStatusClosed }

// SessionSnack is one append-only snack line. Batch groups the lines of one add-snacks call.
type SessionSnack struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	SessionID snowflake.ID    `json:"session_id" gorm:"not null;index"`
	SnackID   snowflake.ID    `json:"snack_id" gorm:"not null"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Quantity  int64           `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	Batch     int             `json:"batch" gorm:"not null;default:0"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SessionSnack) TableName() string { return "session_snacks" }
