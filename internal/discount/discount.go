package discount

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/loyalty"
)

// Mode identifies the single discount vehicle applied to a charge.
type Mode string

const (
	ModeNone       Mode = ""
	ModePercentage Mode = "percentage"
	ModeAmount     Mode = "amount"
	ModePoints     Mode = "gg_points"
)

// Flow is the form the discount is applied from.
type Flow string

const (
	FlowBooking Flow = "booking"
	FlowClose   Flow = "close"
)

var (
	ErrInvalidMode  = errors.New("invalid_discount_mode")
	ErrInvalidValue = errors.New("invalid_discount_value")
)

var hundred = decimal.NewFromInt(100)

// Discount is an immutable tagged value: exactly one mode and its input.
type Discount struct {
	mode  Mode
	value decimal.Decimal
}

func None() Discount { return Discount{} }

func Percentage(pct decimal.Decimal) Discount {
	return Discount{mode: ModePercentage, value: pct}
}

func Amount(amount decimal.Decimal) Discount {
	return Discount{mode: ModeAmount, value: amount}
}

func Points(points int64) Discount {
	return Discount{mode: ModePoints, value: decimal.NewFromInt(points)}
}

// Parse builds a Discount from a stored or submitted mode and value.
func Parse(mode string, value decimal.Decimal) (Discount, error) {
	if value.IsNegative() {
		return Discount{}, ErrInvalidValue
	}
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeNone, "none":
		return None(), nil
	case ModePercentage:
		return Percentage(value), nil
	case ModeAmount:
		return Amount(value), nil
	case ModePoints, "points":
		if !value.Equal(value.Floor()) {
			return Discount{}, ErrInvalidValue
		}
		return Points(value.IntPart()), nil
	default:
		return Discount{}, ErrInvalidMode
	}
}

func (d Discount) Mode() Mode             { return d.mode }
func (d Discount) Value() decimal.Decimal { return d.value }
func (d Discount) IsZero() bool           { return d.mode == ModeNone || d.value.IsZero() }

// Rules are the caps applied per flow.
type Rules struct {
	ClosePercentageCap   decimal.Decimal
	BookingPercentageCap decimal.Decimal
	CloseAmountCapRatio  decimal.Decimal
	RedemptionPolicy     loyalty.RedemptionPolicy
	MaxRedeemPercentage  decimal.Decimal
}

// DefaultRules caps close discounts at 50% and booking discounts at 100%.
func DefaultRules() Rules {
	return Rules{
		ClosePercentageCap:   decimal.NewFromInt(50),
		BookingPercentageCap: hundred,
		CloseAmountCapRatio:  decimal.RequireFromString("0.5"),
		RedemptionPolicy:     loyalty.PolicyClamp,
		MaxRedeemPercentage:  hundred,
	}
}

// Input is everything a resolution depends on.
type Input struct {
	Discount        Discount
	Flow            Flow
	Base            decimal.Decimal
	Loyalty         loyalty.Config
	CustomerBalance int64
}

// Result is a fully derived discount. Only one of DiscountAmount and GGPrice is non-zero.
type Result struct {
	Mode               Mode
	Value              decimal.Decimal
	DiscountAmount     decimal.Decimal
	DiscountPercentage decimal.Decimal
	GGPrice            decimal.Decimal
	PointsUsed         int64
	FinalAmount        decimal.Decimal
}

// Deduction is the amount taken off the base.
func (r Result) Deduction() decimal.Decimal {
	if r.Mode == ModePoints {
		return r.GGPrice
	}
	return r.DiscountAmount
}

// Resolve derives the discount from the current inputs. It is a pure function of its arguments.
func Resolve(in Input, rules Rules) (Result, error) {
	base := in.Base
	if base.IsNegative() {
		base = decimal.Zero
	}
	value := in.Discount.Value()
	if value.IsNegative() {
		return Result{}, ErrInvalidValue
	}

	res := Result{
		Mode:               in.Discount.Mode(),
		Value:              value,
		DiscountAmount:     decimal.Zero,
		DiscountPercentage: decimal.Zero,
		GGPrice:            decimal.Zero,
	}

	switch in.Discount.Mode() {
	case ModeNone:
		res.Value = decimal.Zero
	case ModePercentage:
		pct := decimal.Min(value, rules.percentageCap(in.Flow))
		amount := base.Mul(pct).Div(hundred)
		if capAmount, ok := rules.amountCap(in.Flow, base); ok && capAmount.LessThan(amount) {
			amount = capAmount
			pct = amount.Div(base).Mul(hundred)
		}
		res.Value = pct
		res.DiscountPercentage = pct
		res.DiscountAmount = amount
	case ModeAmount:
		amount := value
		capAmount, ok := rules.amountCap(in.Flow, base)
		if !ok {
			capAmount = base
		}
		amount = decimal.Min(amount, capAmount)
		res.Value = amount
		res.DiscountAmount = amount
		if base.IsPositive() {
			res.DiscountPercentage = amount.Div(base).Mul(hundred)
		}
	case ModePoints:
		redemption, err := loyalty.ComputeRedemptionCeiling(loyalty.RedemptionRequest{
			RequestedPoints:     value.IntPart(),
			TotalAmount:         base,
			CustomerBalance:     in.CustomerBalance,
			MaxRedeemPercentage: rules.MaxRedeemPercentage,
		}, in.Loyalty, rules.RedemptionPolicy)
		if err != nil {
			return Result{}, err
		}
		res.Value = decimal.NewFromInt(redemption.PointsUsed)
		res.PointsUsed = redemption.PointsUsed
		res.GGPrice = redemption.GGPrice
	default:
		return Result{}, ErrInvalidMode
	}

	res.FinalAmount = base.Sub(res.Deduction())
	if res.FinalAmount.IsNegative() {
		res.FinalAmount = decimal.Zero
	}
	return res, nil
}

func (r Rules) percentageCap(flow Flow) decimal.Decimal {
	if flow == FlowClose {
		return r.ClosePercentageCap
	}
	return r.BookingPercentageCap
}

// amountCap bounds close discounts at base times the ratio. A ratio of 0 allows
// no rupee discount at close; a ratio above 1 is held at 1.
func (r Rules) amountCap(flow Flow, base decimal.Decimal) (decimal.Decimal, bool) {
	if flow != FlowClose {
		return decimal.Zero, false
	}
	ratio := decimal.Min(decimal.Max(r.CloseAmountCapRatio, decimal.Zero), decimal.NewFromInt(1))
	return base.Mul(ratio), true
}
