package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/loyalty"
	"github.com/smallbiznis/gglounge/internal/pricing"
	"gorm.io/datatypes"
)

// Settings is the pricing and loyalty configuration of one device type at one branch.
type Settings struct {
	ID                 snowflake.ID      `json:"id" gorm:"primaryKey"`
	BranchID           snowflake.ID      `json:"branch_id" gorm:"column:branch_id;not null;uniqueIndex:ux_settings_branch_device_type"`
	DeviceType         string            `json:"device_type" gorm:"column:device_type;type:text;not null;uniqueIndex:ux_settings_branch_device_type"`
	SinglePrice        decimal.Decimal   `json:"single_price" gorm:"type:numeric;not null"`
	DualPrice          decimal.Decimal   `json:"dual_price" gorm:"type:numeric;not null"`
	GroupPrice         decimal.Decimal   `json:"group_price" gorm:"type:numeric;not null"`
	RewardPercentage   decimal.Decimal   `json:"reward_percentage" gorm:"type:numeric;not null"`
	PointsToRupeeRatio decimal.Decimal   `json:"points_to_rupee_ratio" gorm:"type:numeric;not null"`
	Metadata           datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt          time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Settings) TableName() string { return "settings" }

func (s Settings) Tiers() *pricing.Tiers {
	return &pricing.Tiers{
		Single: s.SinglePrice,
		Dual:   s.DualPrice,
		Group:  s.GroupPrice,
	}
}

func (s Settings) Loyalty() loyalty.Config {
	return loyalty.Config{
		RewardPercentage:   s.RewardPercentage,
		PointsToRupeeRatio: s.PointsToRupeeRatio,
	}
}
