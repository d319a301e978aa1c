package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) BookDevice(ctx context.Context, db *gorm.DB, deviceID, sessionID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE devices SET status = ?, current_session_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(catalogdomain.DeviceStatusBooked),
		sessionID,
		time.Now().UTC(),
		deviceID,
		string(catalogdomain.DeviceStatusOpen),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ReleaseDevice(ctx context.Context, db *gorm.DB, deviceID, sessionID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE devices SET status = ?, current_session_id = NULL, updated_at = ?
		 WHERE id = ? AND (current_session_id = ? OR current_session_id IS NULL)`,
		string(catalogdomain.DeviceStatusOpen),
		time.Now().UTC(),
		deviceID,
		sessionID,
	).Error
}

func (r *repo) IncrementPopularity(ctx context.Context, db *gorm.DB, gameID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE games SET popularity = popularity + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(),
		gameID,
	).Error
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, snackID snowflake.ID, quantity int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE snacks SET quantity = quantity - ?, updated_at = ? WHERE id = ? AND quantity >= ?`,
		quantity,
		time.Now().UTC(),
		snackID,
		quantity,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
