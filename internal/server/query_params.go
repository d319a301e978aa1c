package server

import (
	"strings"
	"time"
)

// timeWindow is an optional [From, To] filter taken from two query values.
type timeWindow struct {
	From *time.Time
	To   *time.Time
}

// parseTimeWindow accepts RFC 3339 instants or bare dates. A bare From date
// starts at midnight UTC and a bare To date runs to the end of that day, so
// from=2026-03-14&to=2026-03-14 covers one business day. Errors name the
// offending query field.
func parseTimeWindow(fromField, from, toField, to string) (timeWindow, error) {
	var window timeWindow
	var ok bool
	if window.From, ok = parseBound(from, false); !ok {
		return timeWindow{}, newValidationError(fromField, "invalid_"+fromField, "invalid "+fromField)
	}
	if window.To, ok = parseBound(to, true); !ok {
		return timeWindow{}, newValidationError(toField, "invalid_"+toField, "invalid "+toField)
	}
	if window.From != nil && window.To != nil && window.From.After(*window.To) {
		return timeWindow{}, newValidationError(toField, "invalid_time_range", toField+" is before "+fromField)
	}
	return window, nil
}

func parseBound(value string, endOfDay bool) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, true
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, true
}
