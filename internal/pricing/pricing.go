package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DurationUnit is the unit a session duration is expressed in.
type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
)

// Band is a player-count pricing band.
type Band string

const (
	BandSingle Band = "single"
	BandDual   Band = "dual"
	BandGroup  Band = "group"
)

// DefaultMaxPlayers applies when a device has no configured capacity.
const DefaultMaxPlayers = 4

var (
	ErrConfigurationMissing = errors.New("configuration_missing")
	ErrInvalidPlayerCount   = errors.New("invalid_player_count")
	ErrInvalidDuration      = errors.New("invalid_duration")
	ErrInvalidDurationUnit  = errors.New("invalid_duration_unit")
)

var (
	minutesPerHour   = decimal.NewFromInt(60)
	secondsPerMinute = decimal.NewFromInt(60)
)

// Tiers holds the per-player hourly price of each band.
type Tiers struct {
	Single decimal.Decimal
	Dual   decimal.Decimal
	Group  decimal.Decimal
}

// PricePerPlayer returns the hourly price per player for the band.
func (t Tiers) PricePerPlayer(band Band) decimal.Decimal {
	switch band {
	case BandSingle:
		return t.Single
	case BandDual:
		return t.Dual
	default:
		return t.Group
	}
}

// Input describes one time charge: players on a device for a duration.
type Input struct {
	PlayerCount  int
	MaxPlayers   int
	Duration     decimal.Decimal
	DurationUnit DurationUnit
}

// Quote is the outcome of a base amount computation.
type Quote struct {
	PlayerCount int
	Band        Band
	HourlyRate  decimal.Decimal
	Hours       decimal.Decimal
	Amount      decimal.Decimal
}

// ParseUnit normalizes a raw unit string.
func ParseUnit(raw string) (DurationUnit, error) {
	switch DurationUnit(strings.ToLower(strings.TrimSpace(raw))) {
	case UnitMinutes, "minute", "min", "mins":
		return UnitMinutes, nil
	case UnitHours, "hour", "hr", "hrs":
		return UnitHours, nil
	default:
		return "", ErrInvalidDurationUnit
	}
}

// SelectBand maps a player count onto exactly one band.
func SelectBand(playerCount int) Band {
	switch {
	case playerCount <= 1:
		return BandSingle
	case playerCount == 2:
		return BandDual
	default:
		return BandGroup
	}
}

// ClampPlayers rejects non-positive counts and caps the rest at maxPlayers.
func ClampPlayers(playerCount, maxPlayers int) (int, error) {
	if playerCount <= 0 {
		return 0, ErrInvalidPlayerCount
	}
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if playerCount > maxPlayers {
		return maxPlayers, nil
	}
	return playerCount, nil
}

// ComputeBaseAmount prices a duration for a player count. The amount is not rounded.
func ComputeBaseAmount(in Input, tiers *Tiers) (Quote, error) {
	if tiers == nil {
		return Quote{}, ErrConfigurationMissing
	}

	players, err := ClampPlayers(in.PlayerCount, in.MaxPlayers)
	if err != nil {
		return Quote{}, err
	}

	hours, err := ToHours(in.Duration, in.DurationUnit)
	if err != nil {
		return Quote{}, err
	}

	band := SelectBand(players)
	rate := tiers.PricePerPlayer(band).Mul(decimal.NewFromInt(int64(players)))

	return Quote{
		PlayerCount: players,
		Band:        band,
		HourlyRate:  rate,
		Hours:       hours,
		Amount:      rate.Mul(hours),
	}, nil
}

// ToHours converts a positive duration into hours.
func ToHours(value decimal.Decimal, unit DurationUnit) (decimal.Decimal, error) {
	if !value.IsPositive() {
		return decimal.Zero, ErrInvalidDuration
	}
	switch unit {
	case UnitHours:
		return value, nil
	case UnitMinutes:
		return MinutesToHours(value), nil
	default:
		return decimal.Zero, ErrInvalidDurationUnit
	}
}

func HoursToMinutes(hours decimal.Decimal) decimal.Decimal {
	return hours.Mul(minutesPerHour)
}

func MinutesToHours(minutes decimal.Decimal) decimal.Decimal {
	return minutes.Div(minutesPerHour)
}

// MergeDuration adds a duration to an existing one. Mixed units resolve to hours.
func MergeDuration(current decimal.Decimal, currentUnit DurationUnit, added decimal.Decimal, addedUnit DurationUnit) (decimal.Decimal, DurationUnit, error) {
	if current.IsNegative() {
		return decimal.Zero, "", ErrInvalidDuration
	}
	if !added.IsPositive() {
		return decimal.Zero, "", ErrInvalidDuration
	}
	if !validUnit(currentUnit) || !validUnit(addedUnit) {
		return decimal.Zero, "", ErrInvalidDurationUnit
	}

	switch {
	case currentUnit == addedUnit:
		return current.Add(added), currentUnit, nil
	case currentUnit == UnitMinutes:
		return MinutesToHours(current).Add(added), UnitHours, nil
	default:
		return current.Add(MinutesToHours(added)), UnitHours, nil
	}
}

// ToDuration converts a duration magnitude into wall-clock time, rounded to the second.
func ToDuration(value decimal.Decimal, unit DurationUnit) (time.Duration, error) {
	if value.IsNegative() {
		return 0, ErrInvalidDuration
	}
	minutes := value
	switch unit {
	case UnitMinutes:
	case UnitHours:
		minutes = HoursToMinutes(value)
	default:
		return 0, ErrInvalidDurationUnit
	}
	seconds := minutes.Mul(secondsPerMinute).Round(0).IntPart()
	return time.Duration(seconds) * time.Second, nil
}

func validUnit(unit DurationUnit) bool {
	return unit == UnitMinutes || unit == UnitHours
}
