package observability

import (
	"strings"

	"github.com/smallbiznis/gglounge/internal/observability/logger"
	"github.com/smallbiznis/gglounge/internal/observability/metrics"
	"github.com/smallbiznis/gglounge/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	gormlogger "gorm.io/gorm/logger"
)

// Module provides the zap logger, the gorm query logger, the OTel tracer and
// meter providers, the billing metrics and the Prometheus HTTP metrics.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.loggerConfig,
		Config.gormLoggerConfig,
		Config.tracingConfig,
		Config.metricsConfig,
		logger.New,
		fx.Annotate(logger.NewGormLogger, fx.As(new(gormlogger.Interface))),
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func (c Config) loggerConfig() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               c.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

// gormLoggerConfig traces every statement when LOG_LEVEL is debug. Otherwise
// only failed statements and those slower than DB_SLOW_QUERY_MS are logged.
func (c Config) gormLoggerConfig() logger.GormLoggerConfig {
	cfg := logger.DefaultGormLoggerConfig()
	if c.DBSlowQueryThreshold > 0 {
		cfg.SlowThreshold = c.DBSlowQueryThreshold
	}
	if strings.EqualFold(c.LogLevel, "debug") {
		cfg.Level = gormlogger.Info
	}
	return cfg
}

func (c Config) tracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) metricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
