package payment

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/config"
)

// Mode is how a session is settled at close.
type Mode string

const (
	ModeCash       Mode = "Cash"
	ModeUpi        Mode = "Upi"
	ModeMembership Mode = "Membership"
	ModePartPaid   Mode = "Part-paid"
)

var (
	ErrInvalidMode               = errors.New("invalid_payment_mode")
	ErrInvalidChannelAmount      = errors.New("invalid_channel_amount")
	ErrPaymentMismatch           = errors.New("payment_mismatch")
	ErrInsufficientWalletBalance = errors.New("insufficient_wallet_balance")
)

// ParseMode accepts the canonical names case-insensitively.
func ParseMode(raw string) (Mode, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "cash":
		return ModeCash, nil
	case "upi":
		return ModeUpi, nil
	case "membership", "wallet":
		return ModeMembership, nil
	case "part-paid", "part_paid", "partpaid", "split":
		return ModePartPaid, nil
	default:
		return "", ErrInvalidMode
	}
}

// Channels are the operator-entered split amounts. Only Part-paid reads them.
type Channels struct {
	Cash       decimal.Decimal
	Upi        decimal.Decimal
	Membership decimal.Decimal
}

func (c Channels) Sum() decimal.Decimal {
	return c.Cash.Add(c.Upi).Add(c.Membership)
}

// Request is one closing payment to validate.
type Request struct {
	Mode          Mode
	Channels      Channels
	FinalAmount   decimal.Decimal
	WalletBalance decimal.Decimal
}

// Settlement is the accepted per-channel breakdown.
type Settlement struct {
	Mode        Mode
	Cash        decimal.Decimal
	Upi         decimal.Decimal
	Membership  decimal.Decimal
	AmountPaid  decimal.Decimal
	WalletDebit decimal.Decimal
}

// Reconciler validates closing payments against the final amount.
type Reconciler struct {
	epsilon func() decimal.Decimal
}

func NewReconciler(policy *config.PolicyHolder) *Reconciler {
	return &Reconciler{
		epsilon: func() decimal.Decimal {
			return decimal.NewFromFloat(policy.Get().PaymentEpsilon)
		},
	}
}

// NewStaticReconciler uses a fixed tolerance.
func NewStaticReconciler(epsilon decimal.Decimal) *Reconciler {
	return &Reconciler{epsilon: func() decimal.Decimal { return epsilon }}
}

func (r *Reconciler) Validate(req Request) (Settlement, error) {
	final := req.FinalAmount
	if final.IsNegative() {
		return Settlement{}, ErrInvalidChannelAmount
	}
	zero := decimal.Zero
	settlement := Settlement{Mode: req.Mode, Cash: zero, Upi: zero, Membership: zero, WalletDebit: zero, AmountPaid: final}

	switch req.Mode {
	case ModeCash:
		settlement.Cash = final
	case ModeUpi:
		settlement.Upi = final
	case ModeMembership:
		if final.GreaterThan(req.WalletBalance) {
			return Settlement{}, ErrInsufficientWalletBalance
		}
		settlement.Membership = final
		settlement.WalletDebit = final
	case ModePartPaid:
		ch := req.Channels
		if ch.Cash.IsNegative() || ch.Upi.IsNegative() || ch.Membership.IsNegative() {
			return Settlement{}, ErrInvalidChannelAmount
		}
		if ch.Sum().Sub(final).Abs().GreaterThan(r.tolerance()) {
			return Settlement{}, ErrPaymentMismatch
		}
		if ch.Membership.GreaterThan(req.WalletBalance) {
			return Settlement{}, ErrInsufficientWalletBalance
		}
		settlement.Cash = ch.Cash
		settlement.Upi = ch.Upi
		settlement.Membership = ch.Membership
		settlement.WalletDebit = ch.Membership
	default:
		return Settlement{}, ErrInvalidMode
	}

	return settlement, nil
}

func (r *Reconciler) tolerance() decimal.Decimal {
	if r == nil || r.epsilon == nil {
		return decimal.Zero
	}
	eps := r.epsilon()
	if eps.IsNegative() {
		return decimal.Zero
	}
	return eps
}
