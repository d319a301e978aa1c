package loyalty

import (
	"errors"

	"github.com/shopspring/decimal"
)

// RedemptionPolicy decides what happens when a request exceeds the usable ceiling.
type RedemptionPolicy string

const (
	PolicyClamp  RedemptionPolicy = "clamp"
	PolicyReject RedemptionPolicy = "reject"
)

var (
	ErrRedemptionExceedsCeiling = errors.New("redemption_exceeds_ceiling")
	ErrInvalidRedemption        = errors.New("invalid_redemption")
)

var hundred = decimal.NewFromInt(100)

// Config is the loyalty configuration of one branch and device type.
type Config struct {
	RewardPercentage   decimal.Decimal
	PointsToRupeeRatio decimal.Decimal
}

// Earn is the GG points credited for a charge.
type Earn struct {
	Points      int64
	PointsValue int64
}

// ComputeEarn credits floor(amount * reward% / 100) points.
func ComputeEarn(chargeableAmount decimal.Decimal, cfg Config) Earn {
	if !chargeableAmount.IsPositive() || !cfg.RewardPercentage.IsPositive() {
		return Earn{}
	}
	points := chargeableAmount.Mul(cfg.RewardPercentage).Div(hundred).Floor().IntPart()
	return Earn{
		Points:      points,
		PointsValue: PointsValue(points, cfg),
	}
}

// PointsValue is the whole-rupee value of a number of points.
func PointsValue(points int64, cfg Config) int64 {
	if points <= 0 || !cfg.PointsToRupeeRatio.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(points).Div(cfg.PointsToRupeeRatio).Floor().IntPart()
}

// RedemptionRequest asks to spend points against a charge.
type RedemptionRequest struct {
	RequestedPoints int64
	TotalAmount     decimal.Decimal
	CustomerBalance int64
	// MaxRedeemPercentage bounds the share of TotalAmount that points may cover.
	MaxRedeemPercentage decimal.Decimal
}

// Redemption is the resolved point spend.
type Redemption struct {
	PointsUsed         int64
	GGPrice            decimal.Decimal
	PolicyCeiling      int64
	EffectiveCeiling   int64
	MaxGGPriceToBeUsed decimal.Decimal
	Clamped            bool
}

// PolicyCeiling returns the most points one transaction may redeem.
// A maxRedeemPercentage of 0 disables redemption; values above 100 are held at 100.
func PolicyCeiling(totalAmount, maxRedeemPercentage decimal.Decimal, cfg Config) int64 {
	if !totalAmount.IsPositive() || !cfg.PointsToRupeeRatio.IsPositive() || !maxRedeemPercentage.IsPositive() {
		return 0
	}
	pct := decimal.Min(maxRedeemPercentage, hundred)
	return totalAmount.Mul(pct).Div(hundred).Mul(cfg.PointsToRupeeRatio).Floor().IntPart()
}

// ComputeRedemptionCeiling resolves how many points are spent and what they are worth.
// The usable maximum is min(policy ceiling, customer balance).
func ComputeRedemptionCeiling(req RedemptionRequest, cfg Config, policy RedemptionPolicy) (Redemption, error) {
	if req.RequestedPoints < 0 {
		return Redemption{}, ErrInvalidRedemption
	}

	policyCeiling := PolicyCeiling(req.TotalAmount, req.MaxRedeemPercentage, cfg)
	balance := req.CustomerBalance
	if balance < 0 {
		balance = 0
	}
	effective := min(policyCeiling, balance)

	points := req.RequestedPoints
	clamped := false
	if points > effective {
		if policy == PolicyReject {
			return Redemption{}, ErrRedemptionExceedsCeiling
		}
		points = effective
		clamped = true
	}

	return Redemption{
		PointsUsed:         points,
		GGPrice:            decimal.NewFromInt(PointsValue(points, cfg)),
		PolicyCeiling:      policyCeiling,
		EffectiveCeiling:   effective,
		MaxGGPriceToBeUsed: decimal.NewFromInt(PointsValue(effective, cfg)),
		Clamped:            clamped,
	}, nil
}
