package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository holds the conditional writes sessions make against the catalog.
type Repository interface {
	// BookDevice flips an open device to booked. It reports false if the device was not open.
	BookDevice(ctx context.Context, db *gorm.DB, deviceID, sessionID snowflake.ID) (bool, error)
	// ReleaseDevice reopens a device held by sessionID.
	ReleaseDevice(ctx context.Context, db *gorm.DB, deviceID, sessionID snowflake.ID) error
	IncrementPopularity(ctx context.Context, db *gorm.DB, gameID snowflake.ID) error
	// DecrementStock reports false when stock is insufficient.
	DecrementStock(ctx context.Context, db *gorm.DB, snackID snowflake.ID, quantity int64) (bool, error)
}
