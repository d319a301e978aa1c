package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	RedemptionPolicyClamp  = "clamp"
	RedemptionPolicyReject = "reject"
)

// Policy holds the billing knobs an operator may tune without a redeploy.
// Zero limits are literal: a CloseAmountCapRatio of 0 allows no discount at
// close and a MaxRedeemPercentage of 0 disables points redemption.
type Policy struct {
	ClosePercentageCap   float64 `mapstructure:"close_percentage_cap"`
	BookingPercentageCap float64 `mapstructure:"booking_percentage_cap"`
	CloseAmountCapRatio  float64 `mapstructure:"close_amount_cap_ratio"`
	PaymentEpsilon       float64 `mapstructure:"payment_epsilon"`
	RedemptionPolicy     string  `mapstructure:"redemption_policy"`
	MaxRedeemPercentage  float64 `mapstructure:"max_redeem_percentage"`
	VRDurationMinutes    int     `mapstructure:"vr_duration_minutes"`
}

func DefaultPolicy() Policy {
	return Policy{
		ClosePercentageCap:   50,
		BookingPercentageCap: 100,
		CloseAmountCapRatio:  0.5,
		PaymentEpsilon:       0.01,
		RedemptionPolicy:     RedemptionPolicyClamp,
		MaxRedeemPercentage:  100,
		VRDurationMinutes:    15,
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads. Used by tests and tools.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	for _, path := range cfg.PolicyPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("GGLOUNGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.close_percentage_cap", defaults.ClosePercentageCap)
	v.SetDefault("policy.booking_percentage_cap", defaults.BookingPercentageCap)
	v.SetDefault("policy.close_amount_cap_ratio", defaults.CloseAmountCapRatio)
	v.SetDefault("policy.payment_epsilon", defaults.PaymentEpsilon)
	v.SetDefault("policy.redemption_policy", defaults.RedemptionPolicy)
	v.SetDefault("policy.max_redeem_percentage", defaults.MaxRedeemPercentage)
	v.SetDefault("policy.vr_duration_minutes", defaults.VRDurationMinutes)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	policy, err := unmarshalPolicy(v)
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	log = log.Named("policy")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalPolicy(v)
		if err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

// Unmarshal goes through AllSettings so nested defaults merge with a partial file.
func unmarshalPolicy(v *viper.Viper) (Policy, error) {
	var wrapper struct {
		Policy Policy `mapstructure:"policy"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return Policy{}, err
	}
	return wrapper.Policy, nil
}

func validatePolicy(p Policy) error {
	if p.ClosePercentageCap < 0 || p.ClosePercentageCap > 100 {
		return errors.New("policy.close_percentage_cap must be within [0,100]")
	}
	if p.BookingPercentageCap < 0 || p.BookingPercentageCap > 100 {
		return errors.New("policy.booking_percentage_cap must be within [0,100]")
	}
	if p.CloseAmountCapRatio < 0 || p.CloseAmountCapRatio > 1 {
		return errors.New("policy.close_amount_cap_ratio must be within [0,1]")
	}
	if p.PaymentEpsilon < 0 {
		return errors.New("policy.payment_epsilon cannot be negative")
	}
	switch p.RedemptionPolicy {
	case RedemptionPolicyClamp, RedemptionPolicyReject:
	default:
		return errors.New("policy.redemption_policy must be clamp or reject")
	}
	if p.MaxRedeemPercentage < 0 || p.MaxRedeemPercentage > 100 {
		return errors.New("policy.max_redeem_percentage must be within [0,100]")
	}
	if p.VRDurationMinutes <= 0 {
		return errors.New("policy.vr_duration_minutes must be positive")
	}
	return nil
}
