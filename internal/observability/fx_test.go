package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/gglounge/internal/config"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLoggerConfigFollowsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("DB_SLOW_QUERY_MS", "")
	cfg := LoadConfig(config.Config{AppName: "gglounge"}).gormLoggerConfig()
	assert.Equal(t, gormlogger.Warn, cfg.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)

	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DB_SLOW_QUERY_MS", "50")
	cfg = LoadConfig(config.Config{AppName: "gglounge"}).gormLoggerConfig()
	assert.Equal(t, gormlogger.Info, cfg.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.SlowThreshold)
}

func TestTracingStaysOffWithoutCollector(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "7")
	cfg := LoadConfig(config.Config{})

	assert.False(t, cfg.tracingConfig().Enabled)
	assert.False(t, cfg.metricsConfig().Enabled)
	assert.Equal(t, 1.0, cfg.tracingConfig().SamplingRatio)
	assert.Equal(t, "gglounge", cfg.loggerConfig().ServiceName)
}
