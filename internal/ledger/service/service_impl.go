package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	auditSvc auditdomain.Service
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.service"),
		genID:    p.GenID,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Post(ctx context.Context, req ledgerdomain.PostRequest) (bool, error) {
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.PostTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return false, err
	}

	if !inserted {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(req.SourceType)),
			zap.String("source_key", req.SourceKey),
		)
		return false, nil
	}

	if s.auditSvc != nil {
		metadata := map[string]any{
			"account":     string(req.Account),
			"source_type": string(req.SourceType),
			"source_key":  strings.TrimSpace(req.SourceKey),
			"points":      req.Points,
			"amount":      req.Amount.String(),
		}
		if err := s.auditSvc.AuditLog(ctx, "ledger.entry_posted", "customer", req.CustomerID.String(), metadata); err != nil {
			s.log.Warn("failed to write ledger audit log", zap.Error(err))
		}
	}
	return true, nil
}

func (s *Service) PostTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.PostRequest) (bool, error) {
	if req.BranchID == 0 {
		return false, ledgerdomain.ErrInvalidBranch
	}
	if req.CustomerID == 0 {
		return false, ledgerdomain.ErrInvalidCustomer
	}
	if strings.TrimSpace(string(req.SourceType)) == "" {
		return false, ledgerdomain.ErrInvalidSourceType
	}
	sourceKey := strings.TrimSpace(req.SourceKey)
	if sourceKey == "" {
		return false, ledgerdomain.ErrInvalidSourceKey
	}

	switch req.Account {
	case ledgerdomain.AccountRewards:
		if req.Points == 0 || !req.Amount.IsZero() {
			return false, ledgerdomain.ErrInvalidAmount
		}
	case ledgerdomain.AccountWallet:
		if req.Amount.IsZero() || req.Points != 0 {
			return false, ledgerdomain.ErrInvalidAmount
		}
	default:
		return false, ledgerdomain.ErrInvalidAccount
	}

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	now := time.Now().UTC()
	entry := ledgerdomain.Entry{
		ID:         s.genID.Generate(),
		BranchID:   req.BranchID,
		CustomerID: req.CustomerID,
		Account:    req.Account,
		SourceType: req.SourceType,
		SourceKey:  sourceKey,
		Points:     req.Points,
		Amount:     req.Amount,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
	}
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_key"}},
		DoNothing: true,
	}).Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	if err := s.applyBalance(ctx, tx, req, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) applyBalance(ctx context.Context, tx *gorm.DB, req ledgerdomain.PostRequest, now time.Time) error {
	var result *gorm.DB
	switch req.Account {
	case ledgerdomain.AccountRewards:
		result = tx.WithContext(ctx).Exec(
			`UPDATE customers SET total_rewards = total_rewards + ?, updated_at = ?
			 WHERE id = ? AND branch_id = ? AND total_rewards + ? >= 0`,
			req.Points, now, req.CustomerID, req.BranchID, req.Points,
		)
	default:
		result = tx.WithContext(ctx).Exec(
			`UPDATE customers SET wallet = wallet + ?, updated_at = ?
			 WHERE id = ? AND branch_id = ? AND wallet + ? >= 0`,
			req.Amount, now, req.CustomerID, req.BranchID, req.Amount,
		)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.WithContext(ctx).Table("customers").
		Where("id = ? AND branch_id = ?", req.CustomerID, req.BranchID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ledgerdomain.ErrCustomerNotFound
	}
	return ledgerdomain.ErrInsufficientFunds
}

func (s *Service) ListEntries(ctx context.Context, customerID snowflake.ID) ([]ledgerdomain.Entry, error) {
	if customerID == 0 {
		return nil, ledgerdomain.ErrInvalidCustomer
	}
	var entries []ledgerdomain.Entry
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Balance sums the posted entries of one account.
func Balance(entries []ledgerdomain.Entry, account ledgerdomain.Account) (int64, decimal.Decimal) {
	var points int64
	amount := decimal.Zero
	for _, entry := range entries {
		if entry.Account != account {
			continue
		}
		points += entry.Points
		amount = amount.Add(entry.Amount)
	}
	return points, amount
}
