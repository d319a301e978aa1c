package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	"github.com/smallbiznis/gglounge/internal/cache"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  settingsdomain.Repository
	Cache cache.SettingsCache
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     settingsdomain.Repository
	cache    cache.SettingsCache
	validate *validator.Validate
}

func New(p Params) settingsdomain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NewMemorySettingsCache()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		cache:    c,
		validate: validation.New(),
	}
}

func (s *Service) Upsert(ctx context.Context, req settingsdomain.UpsertRequest) (*settingsdomain.Response, error) {
	branchID, err := s.branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	deviceType := NormalizeDeviceType(req.DeviceType)
	if deviceType == "" {
		return nil, settingsdomain.ErrInvalidDeviceType
	}
	if !req.SinglePrice.IsPositive() || !req.DualPrice.IsPositive() || !req.GroupPrice.IsPositive() {
		return nil, settingsdomain.ErrInvalidPrice
	}
	if req.RewardPercentage.IsNegative() || req.RewardPercentage.GreaterThan(hundred) {
		return nil, settingsdomain.ErrInvalidRewardPercent
	}
	if !req.PointsToRupeeRatio.IsPositive() {
		return nil, settingsdomain.ErrInvalidRatio
	}

	now := time.Now().UTC()
	entity := &settingsdomain.Settings{
		ID:                 s.genID.Generate(),
		BranchID:           branchID,
		DeviceType:         deviceType,
		SinglePrice:        req.SinglePrice,
		DualPrice:          req.DualPrice,
		GroupPrice:         req.GroupPrice,
		RewardPercentage:   req.RewardPercentage,
		PointsToRupeeRatio: req.PointsToRupeeRatio,
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Metadata != nil {
		entity.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.Upsert(ctx, s.db, entity); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, branchID, deviceType)

	stored, err := s.repo.FindByDeviceType(ctx, s.db, branchID, deviceType)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, settingsdomain.ErrNotFound
	}

	s.log.Info("settings upserted",
		zap.String("branch_id", branchID.String()),
		zap.String("device_type", deviceType),
	)
	return toResponse(stored), nil
}

func (s *Service) Get(ctx context.Context, deviceType string) (*settingsdomain.Response, error) {
	branchID, err := s.branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	item, err := s.Resolve(ctx, branchID, deviceType)
	if err != nil {
		if errors.Is(err, settingsdomain.ErrConfigurationMissing) {
			return nil, settingsdomain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(item), nil
}

func (s *Service) List(ctx context.Context) ([]settingsdomain.Response, error) {
	branchID, err := s.branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, branchID)
	if err != nil {
		return nil, err
	}

	resp := make([]settingsdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Resolve(ctx context.Context, branchID snowflake.ID, deviceType string) (*settingsdomain.Settings, error) {
	if branchID == 0 {
		return nil, settingsdomain.ErrInvalidBranch
	}
	deviceType = NormalizeDeviceType(deviceType)
	if deviceType == "" {
		return nil, settingsdomain.ErrInvalidDeviceType
	}

	if cached, ok := s.cache.Get(ctx, branchID, deviceType); ok {
		return cached, nil
	}

	item, err := s.repo.FindByDeviceType(ctx, s.db, branchID, deviceType)
	if err != nil {
		return nil, err
	}
	if item == nil {
		s.log.Warn("settings missing for device type",
			zap.String("branch_id", branchID.String()),
			zap.String("device_type", deviceType),
		)
		return nil, settingsdomain.ErrConfigurationMissing
	}

	s.cache.Set(ctx, item)
	return item, nil
}

func (s *Service) branchIDFromContext(ctx context.Context) (snowflake.ID, error) {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return 0, settingsdomain.ErrInvalidBranch
	}
	return branchID, nil
}

// NormalizeDeviceType maps labels like "PS5 " and "ps5" onto one key.
func NormalizeDeviceType(raw string) string {
	return slug.Make(strings.TrimSpace(raw))
}

func toResponse(s *settingsdomain.Settings) *settingsdomain.Response {
	return &settingsdomain.Response{
		ID:                 s.ID.String(),
		BranchID:           s.BranchID.String(),
		DeviceType:         s.DeviceType,
		SinglePrice:        s.SinglePrice,
		DualPrice:          s.DualPrice,
		GroupPrice:         s.GroupPrice,
		RewardPercentage:   s.RewardPercentage,
		PointsToRupeeRatio: s.PointsToRupeeRatio,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}
