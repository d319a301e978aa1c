package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() sessiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *sessiondomain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, branchID, id snowflake.ID) (*sessiondomain.Session, error) {
	var session sessiondomain.Session
	err := db.WithContext(ctx).
		Where("branch_id = ? AND id = ?", branchID, id).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) UpdateActive(ctx context.Context, db *gorm.DB, session *sessiondomain.Session) (bool, error) {
	result := db.WithContext(ctx).
		Model(session).
		Where("status = ?", string(sessiondomain.SessionStatusActive)).
		Select("*").
		Omit("id", "branch_id", "created_at").
		Updates(session)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertSnacks(ctx context.Context, db *gorm.DB, lines []sessiondomain.SessionSnack) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) ListSnacks(ctx context.Context, db *gorm.DB, sessionIDs []snowflake.ID) ([]sessiondomain.SessionSnack, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var lines []sessiondomain.SessionSnack
	err := db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Order("batch asc, created_at asc, id asc").
		Find(&lines).Error
	return lines, err
}
