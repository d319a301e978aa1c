package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gglounge/internal/audit"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	"github.com/smallbiznis/gglounge/internal/cache"
	"github.com/smallbiznis/gglounge/internal/catalog"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	"github.com/smallbiznis/gglounge/internal/config"
	"github.com/smallbiznis/gglounge/internal/customer"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	"github.com/smallbiznis/gglounge/internal/ledger"
	"github.com/smallbiznis/gglounge/internal/observability"
	obsmiddleware "github.com/smallbiznis/gglounge/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gglounge/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gglounge/internal/observability/tracing"
	"github.com/smallbiznis/gglounge/internal/payment"
	"github.com/smallbiznis/gglounge/internal/saga"
	"github.com/smallbiznis/gglounge/internal/session"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	"github.com/smallbiznis/gglounge/internal/settings"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	audit.Module,
	ledger.Module,
	customer.Module,
	catalog.Module,
	settings.Module,
	payment.Module,
	saga.Module,
	session.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.CORSAllowedOrigins))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, HeaderBranch, HeaderOperator, "X-Request-Id")
	cc.ExposeHeaders = []string{"X-Request-Id"}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	auditSvc    auditdomain.Service
	customerSvc customerdomain.Service
	catalogSvc  catalogdomain.Service
	settingsSvc settingsdomain.Service
	sessionSvc  sessiondomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	AuditSvc    auditdomain.Service
	CustomerSvc customerdomain.Service
	CatalogSvc  catalogdomain.Service
	SettingsSvc settingsdomain.Service
	SessionSvc  sessiondomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		auditSvc:    p.AuditSvc,
		customerSvc: p.CustomerSvc,
		catalogSvc:  p.CatalogSvc,
		settingsSvc: p.SettingsSvc,
		sessionSvc:  p.SessionSvc,
	}
	svc.registerAPIRoutes()
	svc.registerFallback()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", BranchContext())

	// -------- Sessions --------
	api.POST("/sessions", s.CreateSession)
	api.GET("/sessions", s.ListSessions)
	api.GET("/sessions/:id", s.GetSession)
	api.POST("/sessions/:id/extend", s.ExtendSession)
	api.POST("/sessions/:id/snacks", s.AddSnacksToSession)
	api.POST("/sessions/:id/close", s.CloseSession)
	api.POST("/sessions/:id/retry", s.RetrySession)

	// -------- Customers --------
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomer)
	api.POST("/customers/:id/wallet/topup", s.TopUpWallet)

	// -------- Settings --------
	api.PUT("/settings", s.UpsertSettings)
	api.GET("/settings", s.ListSettings)
	api.GET("/settings/:device_type", s.GetSettings)

	// -------- Catalog --------
	api.POST("/devices", s.CreateDevice)
	api.GET("/devices", s.ListDevices)
	api.GET("/devices/:id", s.GetDevice)
	api.POST("/games", s.CreateGame)
	api.GET("/games", s.ListGames)
	api.GET("/games/:id", s.GetGame)
	api.POST("/snacks", s.CreateSnack)
	api.GET("/snacks", s.ListSnacks)
	api.GET("/snacks/:id", s.GetSnack)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
