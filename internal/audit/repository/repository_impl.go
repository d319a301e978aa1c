package repository

import (
	"context"

	"github.com/smallbiznis/gglounge/internal/audit/domain"
	"github.com/smallbiznis/gglounge/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns the filtered trail newest first, with one row past the page
// size when a further page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	opts := []option.QueryOption{option.WithEquals("branch_id", filter.BranchID)}
	for _, eq := range [][2]string{
		{"action", filter.Action},
		{"actor_id", filter.ActorID},
		{"target_type", filter.TargetType},
		{"target_id", filter.TargetID},
	} {
		if eq[1] != "" {
			opts = append(opts, option.WithEquals(eq[0], eq[1]))
		}
	}

	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	stmt = option.ApplyPagination(filter.Page).Apply(stmt)

	var logs []*domain.AuditLog
	if err := stmt.Order("created_at desc, id desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
