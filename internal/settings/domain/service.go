package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/pricing"
)

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*Response, error)
	Get(ctx context.Context, deviceType string) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	// Resolve returns ErrConfigurationMissing when the pair has no settings.
	Resolve(ctx context.Context, branchID snowflake.ID, deviceType string) (*Settings, error)
}

type UpsertRequest struct {
	DeviceType         string          `json:"device_type" validate:"required,max=64"`
	SinglePrice        decimal.Decimal `json:"single_price"`
	DualPrice          decimal.Decimal `json:"dual_price"`
	GroupPrice         decimal.Decimal `json:"group_price"`
	RewardPercentage   decimal.Decimal `json:"reward_percentage"`
	PointsToRupeeRatio decimal.Decimal `json:"points_to_rupee_ratio"`
	Metadata           map[string]any  `json:"metadata"`
}

type Response struct {
	ID                 string          `json:"id"`
	BranchID           string          `json:"branch_id"`
	DeviceType         string          `json:"device_type"`
	SinglePrice        decimal.Decimal `json:"single_price"`
	DualPrice          decimal.Decimal `json:"dual_price"`
	GroupPrice         decimal.Decimal `json:"group_price"`
	RewardPercentage   decimal.Decimal `json:"reward_percentage"`
	PointsToRupeeRatio decimal.Decimal `json:"points_to_rupee_ratio"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

var (
	ErrInvalidBranch        = errors.New("invalid_branch")
	ErrInvalidDeviceType    = errors.New("invalid_device_type")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidRewardPercent = errors.New("invalid_reward_percentage")
	ErrInvalidRatio         = errors.New("invalid_points_to_rupee_ratio")
	ErrNotFound             = errors.New("not_found")
	ErrConfigurationMissing = pricing.ErrConfigurationMissing
)
