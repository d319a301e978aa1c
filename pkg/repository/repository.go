package repository

import (
	"context"

	"github.com/smallbiznis/gglounge/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the document-store accessor shared by catalog entities:
// create, patch by id, fetch one, list with equality filters and a sort.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID any, patch any) error
	Delete(ctx context.Context, resourceID any) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
