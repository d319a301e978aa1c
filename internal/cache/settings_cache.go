package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"go.uber.org/zap"
)

const defaultSettingsTTL = 5 * time.Minute

// SettingsCache stores resolved pricing and loyalty settings per branch and device type.
type SettingsCache interface {
	Get(ctx context.Context, branchID snowflake.ID, deviceType string) (*settingsdomain.Settings, bool)
	Set(ctx context.Context, settings *settingsdomain.Settings)
	Invalidate(ctx context.Context, branchID snowflake.ID, deviceType string)
}

type memorySettingsCache struct {
	items Cache[string, settingsdomain.Settings]
	ttl   time.Duration
}

// NewMemorySettingsCache keeps settings in process memory.
func NewMemorySettingsCache() SettingsCache {
	return &memorySettingsCache{
		items: NewTTLCache[string, settingsdomain.Settings](),
		ttl:   defaultSettingsTTL,
	}
}

func (c *memorySettingsCache) Get(_ context.Context, branchID snowflake.ID, deviceType string) (*settingsdomain.Settings, bool) {
	item, ok := c.items.Get(settingsKey(branchID, deviceType))
	if !ok {
		return nil, false
	}
	return &item, true
}

func (c *memorySettingsCache) Set(_ context.Context, settings *settingsdomain.Settings) {
	if settings == nil || settings.ID == 0 {
		return
	}
	c.items.Set(settingsKey(settings.BranchID, settings.DeviceType), *settings, c.ttl)
}

func (c *memorySettingsCache) Invalidate(_ context.Context, branchID snowflake.ID, deviceType string) {
	c.items.Delete(settingsKey(branchID, deviceType))
}

type redisSettingsCache struct {
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

// NewRedisSettingsCache shares settings across console instances. Redis failures degrade to a miss.
func NewRedisSettingsCache(client *redis.Client, log *zap.Logger) SettingsCache {
	return &redisSettingsCache{
		client: client,
		log:    log.Named("cache.settings"),
		ttl:    defaultSettingsTTL,
	}
}

func (c *redisSettingsCache) Get(ctx context.Context, branchID snowflake.ID, deviceType string) (*settingsdomain.Settings, bool) {
	raw, err := c.client.Get(ctx, redisSettingsKey(branchID, deviceType)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("settings cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var item settingsdomain.Settings
	if err := json.Unmarshal(raw, &item); err != nil {
		c.log.Warn("settings cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &item, true
}

func (c *redisSettingsCache) Set(ctx context.Context, settings *settingsdomain.Settings) {
	if settings == nil || settings.ID == 0 {
		return
	}
	payload, err := json.Marshal(settings)
	if err != nil {
		c.log.Warn("settings cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisSettingsKey(settings.BranchID, settings.DeviceType), payload, c.ttl).Err(); err != nil {
		c.log.Warn("settings cache write failed", zap.Error(err))
	}
}

func (c *redisSettingsCache) Invalidate(ctx context.Context, branchID snowflake.ID, deviceType string) {
	if err := c.client.Del(ctx, redisSettingsKey(branchID, deviceType)).Err(); err != nil {
		c.log.Warn("settings cache invalidate failed", zap.Error(err))
	}
}

func settingsKey(branchID snowflake.ID, deviceType string) string {
	return cacheKey(branchID.String(), deviceType)
}

func redisSettingsKey(branchID snowflake.ID, deviceType string) string {
	return "gglounge:settings:" + settingsKey(branchID, deviceType)
}
