package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	"github.com/smallbiznis/gglounge/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"github.com/smallbiznis/gglounge/pkg/db"
	"github.com/smallbiznis/gglounge/pkg/db/pagination"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Ledger   ledgerdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	ledger   ledgerdomain.Service
	auditSvc auditdomain.Service
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		ledger:   p.Ledger,
		auditSvc: p.AuditSvc,
		validate: validation.New(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	return s.CreateTx(ctx, s.db, req)
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, req domain.CreateCustomerRequest) (domain.Customer, error) {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Customer{}, domain.ErrInvalidBranch
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = normalizePhone(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(s.validate, req); err != nil {
		return domain.Customer{}, err
	}

	existing, err := s.repo.FindByPhone(ctx, tx, branchID, req.Phone)
	if err != nil {
		return domain.Customer{}, err
	}
	if existing != nil {
		return domain.Customer{}, domain.ErrPhoneTaken
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		BranchID:  branchID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Wallet:    decimal.Zero,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, tx, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrPhoneTaken
		}
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.ListCustomerResponse{}, domain.ErrInvalidBranch
	}

	filter := domain.ListCustomerFilter{
		Name:        strings.TrimSpace(req.Name),
		Phone:       normalizePhone(req.Phone),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: int(req.PageSize)}
	rows, err := s.repo.List(ctx, s.db, branchID, filter, page)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers, info := pagination.Page(rows, page.Size(), func(customer *domain.Customer) pagination.Cursor {
		return pagination.Cursor{ID: customer.ID, CreatedAt: customer.CreatedAt}
	})
	return domain.ListCustomerResponse{Customers: customers, PageInfo: info}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	branchID, ok := branchcontext.BranchIDFromContext(ctx)
	if !ok || branchID == 0 {
		return domain.Customer{}, domain.ErrInvalidBranch
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, branchID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) TopUpWallet(ctx context.Context, req domain.TopUpRequest) (domain.Customer, error) {
	if err := validation.Struct(s.validate, req); err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.GetByID(ctx, domain.GetCustomerRequest{ID: req.CustomerID})
	if err != nil {
		return domain.Customer{}, err
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	applied, err := s.ledger.Post(ctx, ledgerdomain.PostRequest{
		BranchID:   customer.BranchID,
		CustomerID: customer.ID,
		Account:    ledgerdomain.AccountWallet,
		SourceType: ledgerdomain.SourceTypeWalletTopUp,
		SourceKey:  reference,
		Amount:     req.Amount,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrCustomerNotFound) {
			return domain.Customer{}, domain.ErrNotFound
		}
		return domain.Customer{}, err
	}

	if applied && s.auditSvc != nil {
		if err := s.auditSvc.AuditLog(ctx, auditdomain.ActionWalletTopUp, "customer", customer.ID.String(), map[string]any{
			"amount":    req.Amount.String(),
			"reference": reference,
			"phone":     customer.Phone,
		}); err != nil {
			s.log.Warn("failed to write wallet top-up audit log", zap.Error(err))
		}
	}

	return s.GetByID(ctx, domain.GetCustomerRequest{ID: customer.ID.String()})
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if (r >= '0' && r <= '9') || (r == '+' && b.Len() == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
