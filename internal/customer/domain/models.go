package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Customer is a lounge member. Wallet is a prepaid rupee balance; TotalRewards is the GG points balance.
type Customer struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	BranchID     snowflake.ID      `gorm:"not null;index" json:"branch_id"`
	Name         string            `gorm:"not null" json:"name"`
	Phone        string            `gorm:"not null;index" json:"phone"`
	Email        string            `gorm:"column:email" json:"email,omitempty"`
	Wallet       decimal.Decimal   `gorm:"type:numeric;not null;default:0" json:"wallet"`
	TotalRewards int64             `gorm:"not null;default:0" json:"total_rewards"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
