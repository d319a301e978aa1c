package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"github.com/smallbiznis/gglounge/internal/saga"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	handlerGamePopularity = "game.popularity"
	handlerSnackStock     = "snack.stock"
	handlerLedgerPost     = "ledger.post"
)

func (s *Service) registerSteps() {
	s.saga.Register(handlerGamePopularity, s.applyGamePopularity)
	s.saga.Register(handlerSnackStock, s.applySnackStock)
	s.saga.Register(handlerLedgerPost, s.applyLedgerPost)
}

func (s *Service) applyGamePopularity(ctx context.Context, tx *gorm.DB, payload datatypes.JSONMap) error {
	gameID, err := saga.PayloadID(payload, "game_id")
	if err != nil {
		return err
	}
	return s.catalogRepo.IncrementPopularity(ctx, tx, gameID)
}

func (s *Service) applySnackStock(ctx context.Context, tx *gorm.DB, payload datatypes.JSONMap) error {
	snackID, err := saga.PayloadID(payload, "snack_id")
	if err != nil {
		return err
	}
	quantity, err := saga.PayloadInt(payload, "quantity")
	if err != nil {
		return err
	}
	ok, err := s.catalogRepo.DecrementStock(ctx, tx, snackID, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return catalogdomain.ErrInsufficientStock
	}
	return nil
}

func (s *Service) applyLedgerPost(ctx context.Context, tx *gorm.DB, payload datatypes.JSONMap) error {
	branchID, err := saga.PayloadID(payload, "branch_id")
	if err != nil {
		return err
	}
	customerID, err := saga.PayloadID(payload, "customer_id")
	if err != nil {
		return err
	}
	points, err := saga.PayloadInt(payload, "points")
	if err != nil {
		return err
	}
	amount, err := saga.PayloadDecimal(payload, "amount")
	if err != nil {
		return err
	}
	account, _ := payload["account"].(string)
	sourceType, _ := payload["source_type"].(string)
	sourceKey, _ := payload["source_key"].(string)

	posted, err := s.ledger.PostTx(ctx, tx, ledgerdomain.PostRequest{
		BranchID:   branchID,
		CustomerID: customerID,
		Account:    ledgerdomain.Account(account),
		SourceType: ledgerdomain.SourceType(sourceType),
		SourceKey:  sourceKey,
		Points:     points,
		Amount:     amount,
		OccurredAt: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	if !posted {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", sourceType),
			zap.String("source_key", sourceKey),
		)
	}
	return nil
}

func sagaPrefix(sessionID snowflake.ID) string {
	return fmt.Sprintf("session:%s:", sessionID)
}

func createSagaKey(sessionID snowflake.ID) string {
	return sagaPrefix(sessionID) + "create"
}

func extendSagaKey(sessionID snowflake.ID, extension int) string {
	return fmt.Sprintf("%sextend:%d", sagaPrefix(sessionID), extension)
}

func snacksSagaKey(sessionID snowflake.ID, batch int) string {
	return fmt.Sprintf("%ssnacks:%d", sagaPrefix(sessionID), batch)
}

func closeSagaKey(sessionID snowflake.ID) string {
	return sagaPrefix(sessionID) + "close"
}

func popularityStep(gameID snowflake.ID) saga.Step {
	return saga.Step{
		Name:    "game.popularity",
		Handler: handlerGamePopularity,
		Payload: map[string]any{"game_id": gameID.String()},
	}
}

func stockSteps(lines []sessiondomain.SessionSnack) []saga.Step {
	steps := make([]saga.Step, 0, len(lines))
	for _, line := range lines {
		steps = append(steps, saga.Step{
			Name:    "snack.stock:" + line.ID.String(),
			Handler: handlerSnackStock,
			Payload: map[string]any{
				"snack_id": line.SnackID.String(),
				"quantity": fmt.Sprintf("%d", line.Quantity),
			},
		})
	}
	return steps
}

func ledgerStep(name string, session *sessiondomain.Session, account ledgerdomain.Account, sourceType ledgerdomain.SourceType, sourceKey string, points int64, amount decimal.Decimal) saga.Step {
	return saga.Step{
		Name:    name,
		Handler: handlerLedgerPost,
		Payload: map[string]any{
			"branch_id":   session.BranchID.String(),
			"customer_id": session.CustomerID.String(),
			"account":     string(account),
			"source_type": string(sourceType),
			"source_key":  sourceKey,
			"points":      fmt.Sprintf("%d", points),
			"amount":      amount.String(),
		},
	}
}

// execute runs the recorded steps of sagaKey and folds failures into session warnings.
func (s *Service) execute(ctx context.Context, session *sessiondomain.Session, sagaKey string) {
	result, err := s.saga.Execute(ctx, sagaKey)
	if err != nil {
		s.log.Warn("failed to execute dependent writes",
			zap.String("session_id", session.ID.String()),
			zap.String("saga_key", sagaKey),
			zap.Error(err),
		)
		session.Warnings = append(session.Warnings, fmt.Sprintf("%s: %s: %v", saga.ErrDependentWriteFailed, sagaKey, err))
		return
	}
	for _, failure := range result.Failed {
		s.log.Warn("dependent write failed",
			zap.String("session_id", session.ID.String()),
			zap.String("step", failure.Step),
			zap.Error(failure.Err),
		)
	}
	session.Warnings = append(session.Warnings, result.Warnings()...)
}
