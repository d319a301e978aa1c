package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() settingsdomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *settingsdomain.Settings) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "branch_id"}, {Name: "device_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"single_price",
				"dual_price",
				"group_price",
				"reward_percentage",
				"points_to_rupee_ratio",
				"metadata",
				"updated_at",
			}),
		}).
		Create(settings).Error
}

func (r *repo) FindByDeviceType(ctx context.Context, db *gorm.DB, branchID snowflake.ID, deviceType string) (*settingsdomain.Settings, error) {
	var item settingsdomain.Settings
	err := db.WithContext(ctx).
		Where("branch_id = ? AND device_type = ?", branchID, deviceType).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, branchID snowflake.ID) ([]settingsdomain.Settings, error) {
	var items []settingsdomain.Settings
	err := db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("device_type ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
