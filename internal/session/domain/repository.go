package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *Session) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Session, error)
	// UpdateActive saves the session only while it is still Active. It reports false otherwise.
	UpdateActive(ctx context.Context, db *gorm.DB, session *Session) (bool, error)
	InsertSnacks(ctx context.Context, db *gorm.DB, lines []SessionSnack) error
	ListSnacks(ctx context.Context, db *gorm.DB, sessionIDs []snowflake.ID) ([]SessionSnack, error)
}
