package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gglounge/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*Customer, error)
	FindByPhone(ctx context.Context, db *gorm.DB, branchID snowflake.ID, phone string) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, branchID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
}
