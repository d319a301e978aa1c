package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, settings *Settings) error
	FindByDeviceType(ctx context.Context, db *gorm.DB, branchID snowflake.ID, deviceType string) (*Settings, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID) ([]Settings, error)
}
