package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	"github.com/smallbiznis/gglounge/internal/clock"
	"github.com/smallbiznis/gglounge/internal/config"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	"github.com/smallbiznis/gglounge/internal/discount"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"github.com/smallbiznis/gglounge/internal/loyalty"
	obsmetrics "github.com/smallbiznis/gglounge/internal/observability/metrics"
	"github.com/smallbiznis/gglounge/internal/payment"
	"github.com/smallbiznis/gglounge/internal/saga"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"github.com/smallbiznis/gglounge/pkg/db/option"
	"github.com/smallbiznis/gglounge/pkg/repository"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const auditTargetSession = "session"

var sessionSortColumns = map[string]struct{}{
	"session_in":   {},
	"session_out":  {},
	"created_at":   {},
	"total_amount": {},
	"status":       {},
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Policy      *config.PolicyHolder
	Repo        sessiondomain.Repository
	CatalogRepo catalogdomain.Repository

	Catalog    catalogdomain.Service
	Customers  customerdomain.Service
	Settings   settingsdomain.Service
	Ledger     ledgerdomain.Service
	Reconciler *payment.Reconciler
	Saga       *saga.Runner
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyHolder
	repo        sessiondomain.Repository
	catalogRepo catalogdomain.Repository
	sessions    repository.Repository[sessiondomain.Session]

	catalog    catalogdomain.Service
	customers  customerdomain.Service
	settings   settingsdomain.Service
	ledger     ledgerdomain.Service
	reconciler *payment.Reconciler
	saga       *saga.Runner
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics

	validate *validator.Validate
	tracer   trace.Tracer
}

func New(p Params) sessiondomain.Service {
	svc := &Service{
		db:          p.DB,
		log:         p.Log.Named("session.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		policy:      p.Policy,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		sessions:    repository.ProvideStore[sessiondomain.Session](p.DB),

		catalog:    p.Catalog,
		customers:  p.Customers,
		settings:   p.Settings,
		ledger:     p.Ledger,
		reconciler: p.Reconciler,
		saga:       p.Saga,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,

		validate: validation.New(),
		tracer:   otel.Tracer("gglounge/session"),
	}
	svc.registerSteps()
	return svc
}

func (s *Service) GetSession(ctx context.Context, id string) (*sessiondomain.Session, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	session, err := s.load(ctx, branchID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.attachSnacks(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, req sessiondomain.ListSessionsRequest) ([]*sessiondomain.Session, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	opts := []option.QueryOption{option.WithEquals("branch_id", branchID)}
	if status := strings.TrimSpace(req.Status); status != "" {
		switch sessiondomain.SessionStatus(status) {
		case sessiondomain.SessionStatusActive, sessiondomain.SessionStatusClosed:
		default:
			return nil, invalid(fmt.Errorf("unknown status %q", status))
		}
		opts = append(opts, option.WithEquals("status", status))
	}
	if raw := strings.TrimSpace(req.DeviceID); raw != "" {
		deviceID, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithEquals("device_id", deviceID))
	}
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithEquals("customer_id", customerID))
	}

	sortBy := strings.TrimSpace(req.Sort)
	if sortBy == "" {
		sortBy = "session_in"
	}
	if _, ok := sessionSortColumns[sortBy]; !ok {
		return nil, invalid(fmt.Errorf("unsupported sort %q", sortBy))
	}
	opts = append(opts, option.WithSort(sortBy, option.ParseSortDirection(req.Order)))
	if req.Limit > 0 {
		opts = append(opts, option.WithLimit(req.Limit))
	}

	items, err := s.sessions.Find(ctx, &sessiondomain.Session{}, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.attachSnacks(ctx, items...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) RetryPending(ctx context.Context, id string) (*sessiondomain.Session, error) {
	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	session, err := s.load(ctx, branchID, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.saga.Resume(ctx, sagaPrefix(session.ID))
	if err != nil {
		return nil, err
	}
	if len(result.Applied) > 0 {
		s.log.Info("dependent writes applied on retry",
			zap.String("session_id", session.ID.String()),
			zap.Strings("steps", result.Applied),
		)
	}

	if err := s.attachSnacks(ctx, session); err != nil {
		return nil, err
	}
	session.Warnings = result.Warnings()
	return session, nil
}

func (s *Service) load(ctx context.Context, branchID, id snowflake.ID) (*sessiondomain.Session, error) {
	session, err := s.repo.FindByID(ctx, s.db, branchID, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, sessiondomain.ErrSessionNotFound
	}
	return session, nil
}

// loadActive returns ErrSessionClosed for a closed session.
func (s *Service) loadActive(ctx context.Context, branchID, id snowflake.ID) (*sessiondomain.Session, error) {
	session, err := s.load(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if session.IsClosed() {
		return nil, sessiondomain.ErrSessionClosed
	}
	return session, nil
}

func (s *Service) attachSnacks(ctx context.Context, sessions ...*sessiondomain.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(sessions))
	index := make(map[snowflake.ID]*sessiondomain.Session, len(sessions))
	for _, item := range sessions {
		ids = append(ids, item.ID)
		index[item.ID] = item
	}

	lines, err := s.repo.ListSnacks(ctx, s.db, ids)
	if err != nil {
		return err
	}
	for _, item := range sessions {
		item.Snacks = nil
	}
	for _, line := range lines {
		if item, ok := index[line.SessionID]; ok {
			item.Snacks = append(item.Snacks, line)
		}
	}
	return nil
}

// reloadSnacks refreshes the snack lines after a committed transition. The
// transition already happened, so a failed read is logged and the session is
// returned with the lines it had.
func (s *Service) reloadSnacks(ctx context.Context, session *sessiondomain.Session) {
	if err := s.attachSnacks(ctx, session); err != nil {
		s.log.Warn("reloading snack lines failed after commit",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) rules() discount.Rules {
	p := s.policy.Get()
	return discount.Rules{
		ClosePercentageCap:   decimal.NewFromFloat(p.ClosePercentageCap),
		BookingPercentageCap: decimal.NewFromFloat(p.BookingPercentageCap),
		CloseAmountCapRatio:  decimal.NewFromFloat(p.CloseAmountCapRatio),
		RedemptionPolicy:     loyalty.RedemptionPolicy(p.RedemptionPolicy),
		MaxRedeemPercentage:  decimal.NewFromFloat(p.MaxRedeemPercentage),
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) audit(ctx context.Context, action string, session *sessiondomain.Session, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["device_id"] = session.DeviceID.String()
	metadata["customer_id"] = session.CustomerID.String()
	metadata["status"] = string(session.Status)
	if err := s.auditSvc.AuditLog(ctx, action, auditTargetSession, session.ID.String(), metadata); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
	}
}

func branchIDFromContext(ctx context.Context) (snowflake.ID, error) {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return 0, sessiondomain.ErrInvalidBranch
	}
	return branchID, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, sessiondomain.ErrInvalidID
	}
	return id, nil
}

// invalid marks err as a validation failure while keeping it matchable.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", sessiondomain.ErrValidation, err)
}
