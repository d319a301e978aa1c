package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	catalogservice "github.com/smallbiznis/gglounge/internal/catalog/service"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	"github.com/smallbiznis/gglounge/internal/discount"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"github.com/smallbiznis/gglounge/internal/loyalty"
	"github.com/smallbiznis/gglounge/internal/payment"
	"github.com/smallbiznis/gglounge/internal/pricing"
	"github.com/smallbiznis/gglounge/internal/saga"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Service) CreateSession(ctx context.Context, req sessiondomain.CreateSessionRequest) (_ *sessiondomain.Session, err error) {
	ctx, span := s.startSpan(ctx, "session.create")
	defer func() { endSpan(span, err) }()

	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	req.DurationUnit = strings.ToLower(strings.TrimSpace(req.DurationUnit))
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	device, err := s.catalog.GetDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if device.Status != catalogdomain.DeviceStatusOpen {
		return nil, sessiondomain.ErrDeviceUnavailable
	}
	game, err := s.catalog.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Resolve(ctx, branchID, device.Type)
	if err != nil {
		return nil, err
	}

	kind := sessiondomain.SessionKindStandard
	if device.Kind == catalogdomain.DeviceKindVR {
		kind = sessiondomain.SessionKindVR
	}
	span.SetAttributes(attribute.String("session.kind", string(kind)))

	charge, err := s.quoteBooking(kind, req, device, game, cfg)
	if err != nil {
		return nil, err
	}

	lines, snacksTotal, err := s.buildSnackLines(ctx, req.Snacks)
	if err != nil {
		return nil, err
	}

	var booking discount.Discount
	if req.Discount != nil {
		booking, err = discount.Parse(req.Discount.Mode, req.Discount.Value)
		if err != nil {
			return nil, invalid(err)
		}
		if booking.Mode() == discount.ModePoints {
			return nil, invalid(sessiondomain.ErrPointsAtBooking)
		}
	}

	var customerID snowflake.ID
	if id := strings.TrimSpace(req.CustomerID); id != "" {
		customer, err := s.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: id})
		if err != nil {
			return nil, err
		}
		customerID = customer.ID
	} else if req.Customer == nil {
		return nil, invalid(sessiondomain.ErrCustomerRequired)
	}

	now := s.clock.Now()
	session := &sessiondomain.Session{
		ID:                 s.genID.Generate(),
		BranchID:           branchID,
		DeviceID:           device.ID,
		CustomerID:         customerID,
		GameID:             game.ID,
		CreatedBy:          branchcontext.OperatorFromContext(ctx),
		Kind:               kind,
		PlayerCount:        charge.playerCount,
		SessionIn:          now,
		SessionOut:         now.Add(charge.length),
		Duration:           charge.duration,
		DurationUnit:       string(charge.unit),
		SessionAmount:      charge.amount,
		SnacksTotal:        snacksTotal,
		DiscountValue:      decimal.Zero,
		DiscountPercentage: decimal.Zero,
		DiscountAmount:     decimal.Zero,
		GGPrice:            decimal.Zero,
		AmountPaid:         decimal.Zero,
		PaymentMode:        strings.TrimSpace(req.PaymentMode),
		CashAmount:         decimal.Zero,
		UpiAmount:          decimal.Zero,
		MembershipAmount:   decimal.Zero,
		Status:             sessiondomain.SessionStatusActive,
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for k, v := range req.Metadata {
		session.Metadata[k] = v
	}
	session.DiscountType = string(booking.Mode())
	session.DiscountValue = booking.Value()
	if err := s.refreshTotals(session); err != nil {
		return nil, err
	}

	earn := loyalty.ComputeEarn(charge.earnBase, cfg.Loyalty())
	session.GGPointsEarned = earn.Points

	for i := range lines {
		lines[i].SessionID = session.ID
		lines[i].CreatedAt = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A walk-in customer is created with the booking so a lost device race leaves no row behind.
		if session.CustomerID == 0 {
			customer, err := s.customers.CreateTx(ctx, tx, *req.Customer)
			if err != nil {
				return err
			}
			session.CustomerID = customer.ID
		}

		steps := []saga.Step{popularityStep(game.ID)}
		steps = append(steps, stockSteps(lines)...)
		if earn.Points > 0 {
			steps = append(steps, ledgerStep("rewards.earn", session,
				ledgerdomain.AccountRewards, ledgerdomain.SourceTypeSessionEarn,
				session.ID.String(), earn.Points, decimal.Zero))
		}

		if err := s.repo.Insert(ctx, tx, session); err != nil {
			return err
		}
		if err := s.repo.InsertSnacks(ctx, tx, lines); err != nil {
			return err
		}
		booked, err := s.catalogRepo.BookDevice(ctx, tx, device.ID, session.ID)
		if err != nil {
			return err
		}
		if !booked {
			return sessiondomain.ErrDeviceUnavailable
		}
		return s.saga.Record(ctx, tx, createSagaKey(session.ID), steps)
	})
	if err != nil {
		return nil, err
	}

	session.Snacks = lines
	s.execute(ctx, session, createSagaKey(session.ID))

	s.log.Info("session created",
		zap.String("session_id", session.ID.String()),
		zap.String("device_id", device.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("total_amount", session.TotalAmount.String()),
		zap.Int64("gg_points_earned", session.GGPointsEarned),
	)
	s.audit(ctx, auditdomain.ActionSessionCreated, session, map[string]any{
		"kind":             string(kind),
		"session_amount":   session.SessionAmount.String(),
		"snacks_total":     session.SnacksTotal.String(),
		"gg_points_earned": session.GGPointsEarned,
	})
	s.obsMetrics.RecordSessionCreated(ctx, branchID.String(), string(kind))

	return session, nil
}

func (s *Service) ExtendSession(ctx context.Context, id string, req sessiondomain.ExtendSessionRequest) (_ *sessiondomain.Session, err error) {
	ctx, span := s.startSpan(ctx, "session.extend", attribute.String("session.id", id))
	defer func() { endSpan(span, err) }()

	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	req.DurationUnit = strings.ToLower(strings.TrimSpace(req.DurationUnit))
	req.Anchor = strings.ToLower(strings.TrimSpace(req.Anchor))
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	session, err := s.loadActive(ctx, branchID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Kind == sessiondomain.SessionKindVR {
		return nil, invalid(sessiondomain.ErrNotExtendable)
	}

	device, err := s.catalog.GetDevice(ctx, session.DeviceID.String())
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Resolve(ctx, branchID, device.Type)
	if err != nil {
		return nil, err
	}

	playerCount := req.PlayerCount
	if playerCount == 0 {
		playerCount = session.PlayerCount
	}
	addedUnit := pricing.DurationUnit(req.DurationUnit)
	quote, err := pricing.ComputeBaseAmount(pricing.Input{
		PlayerCount:  playerCount,
		MaxPlayers:   device.MaxPlayers,
		Duration:     req.Duration,
		DurationUnit: addedUnit,
	}, cfg.Tiers())
	if err != nil {
		return nil, pricingError(err)
	}

	merged, mergedUnit, err := pricing.MergeDuration(session.Duration, pricing.DurationUnit(session.DurationUnit), req.Duration, addedUnit)
	if err != nil {
		return nil, pricingError(err)
	}

	switch req.Anchor {
	case sessiondomain.AnchorBeforeEnd:
		length, err := pricing.ToDuration(merged, mergedUnit)
		if err != nil {
			return nil, pricingError(err)
		}
		session.SessionOut = session.SessionIn.Add(length)
	default:
		added, err := pricing.ToDuration(req.Duration, addedUnit)
		if err != nil {
			return nil, pricingError(err)
		}
		session.SessionOut = session.SessionOut.Add(added)
	}

	session.PlayerCount = quote.PlayerCount
	session.Duration = merged
	session.DurationUnit = string(mergedUnit)
	session.SessionAmount = session.SessionAmount.Add(quote.Amount)
	session.ExtensionCount++
	session.UpdatedAt = s.clock.Now()
	if err := s.refreshTotals(session); err != nil {
		return nil, err
	}

	earn := loyalty.ComputeEarn(quote.Amount, cfg.Loyalty())
	session.GGPointsEarned += earn.Points

	sagaKey := extendSagaKey(session.ID, session.ExtensionCount)
	var steps []saga.Step
	if earn.Points > 0 {
		steps = append(steps, ledgerStep("rewards.earn", session,
			ledgerdomain.AccountRewards, ledgerdomain.SourceTypeExtensionEarn,
			fmt.Sprintf("%s:%d", session.ID, session.ExtensionCount), earn.Points, decimal.Zero))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.UpdateActive(ctx, tx, session)
		if err != nil {
			return err
		}
		if !updated {
			return sessiondomain.ErrSessionClosed
		}
		return s.saga.Record(ctx, tx, sagaKey, steps)
	})
	if err != nil {
		return nil, err
	}

	s.reloadSnacks(ctx, session)
	s.execute(ctx, session, sagaKey)

	s.log.Info("session extended",
		zap.String("session_id", session.ID.String()),
		zap.String("added", req.Duration.String()+" "+req.DurationUnit),
		zap.String("anchor", anchorOrDefault(req.Anchor)),
		zap.String("session_amount", session.SessionAmount.String()),
	)
	s.audit(ctx, auditdomain.ActionSessionExtended, session, map[string]any{
		"added_duration":  req.Duration.String(),
		"added_unit":      req.DurationUnit,
		"anchor":          anchorOrDefault(req.Anchor),
		"added_amount":    quote.Amount.String(),
		"extension_count": session.ExtensionCount,
	})
	s.obsMetrics.RecordSessionExtended(ctx, branchID.String())

	return session, nil
}

func (s *Service) AddSnacksToSession(ctx context.Context, id string, req sessiondomain.AddSnacksRequest) (_ *sessiondomain.Session, err error) {
	ctx, span := s.startSpan(ctx, "session.add_snacks", attribute.String("session.id", id))
	defer func() { endSpan(span, err) }()

	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}

	session, err := s.loadActive(ctx, branchID, sessionID)
	if err != nil {
		return nil, err
	}

	lines, added, err := s.buildSnackLines(ctx, req.Snacks)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session.SnackBatchCount++
	for i := range lines {
		lines[i].SessionID = session.ID
		lines[i].Batch = session.SnackBatchCount
		lines[i].CreatedAt = now
	}
	session.SnacksTotal = session.SnacksTotal.Add(added)
	session.UpdatedAt = now
	if err := s.refreshTotals(session); err != nil {
		return nil, err
	}

	sagaKey := snacksSagaKey(session.ID, session.SnackBatchCount)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.UpdateActive(ctx, tx, session)
		if err != nil {
			return err
		}
		if !updated {
			return sessiondomain.ErrSessionClosed
		}
		if err := s.repo.InsertSnacks(ctx, tx, lines); err != nil {
			return err
		}
		return s.saga.Record(ctx, tx, sagaKey, stockSteps(lines))
	})
	if err != nil {
		return nil, err
	}

	session.Snacks = lines
	s.reloadSnacks(ctx, session)
	s.execute(ctx, session, sagaKey)

	s.log.Info("snacks added to session",
		zap.String("session_id", session.ID.String()),
		zap.Int("lines", len(lines)),
		zap.String("snacks_total", session.SnacksTotal.String()),
	)
	s.audit(ctx, auditdomain.ActionSessionSnacksAdded, session, map[string]any{
		"batch":        session.SnackBatchCount,
		"lines":        len(lines),
		"added_amount": added.String(),
	})

	return session, nil
}

func (s *Service) CloseSession(ctx context.Context, id string, req sessiondomain.CloseSessionRequest) (_ *sessiondomain.Session, err error) {
	ctx, span := s.startSpan(ctx, "session.close", attribute.String("session.id", id))
	defer func() { endSpan(span, err) }()

	branchID, err := branchIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, err
	}
	mode, err := payment.ParseMode(req.PaymentMode)
	if err != nil {
		return nil, invalid(err)
	}

	session, err := s.loadActive(ctx, branchID, sessionID)
	if err != nil {
		return nil, err
	}
	device, err := s.catalog.GetDevice(ctx, session.DeviceID.String())
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Resolve(ctx, branchID, device.Type)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.GetByID(ctx, customerdomain.GetCustomerRequest{ID: session.CustomerID.String()})
	if err != nil {
		return nil, err
	}

	chosen, err := discount.Parse(session.DiscountType, session.DiscountValue)
	if err != nil {
		return nil, err
	}
	if req.Discount != nil {
		chosen, err = discount.Parse(req.Discount.Mode, req.Discount.Value)
		if err != nil {
			return nil, invalid(err)
		}
	}

	session.TotalAmount = session.SessionAmount.Add(session.SnacksTotal)
	resolved, err := discount.Resolve(discount.Input{
		Discount:        chosen,
		Flow:            discount.FlowClose,
		Base:            session.TotalAmount,
		Loyalty:         cfg.Loyalty(),
		CustomerBalance: customer.TotalRewards,
	}, s.rules())
	if err != nil {
		if errors.Is(err, discount.ErrInvalidMode) || errors.Is(err, discount.ErrInvalidValue) {
			return nil, invalid(err)
		}
		return nil, err
	}

	settlement, err := s.reconciler.Validate(payment.Request{
		Mode: mode,
		Channels: payment.Channels{
			Cash:       req.Cash,
			Upi:        req.Upi,
			Membership: req.Membership,
		},
		FinalAmount:   resolved.FinalAmount,
		WalletBalance: customer.Wallet,
	})
	if err != nil {
		s.obsMetrics.RecordPaymentRejected(ctx, string(mode), err.Error())
		s.log.Info("close rejected by payment reconciliation",
			zap.String("session_id", session.ID.String()),
			zap.String("payment_mode", string(mode)),
			zap.String("final_amount", resolved.FinalAmount.String()),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.clock.Now()
	applyDiscount(session, chosen, resolved)
	session.RewardPointsUsed = resolved.PointsUsed
	session.AmountPaid = settlement.AmountPaid
	session.PaymentMode = string(settlement.Mode)
	session.CashAmount = settlement.Cash
	session.UpiAmount = settlement.Upi
	session.MembershipAmount = settlement.Membership
	session.Status = sessiondomain.SessionStatusClosed
	session.ReceiptNo = ulid.Make().String()
	session.ClosedAt = &now
	session.UpdatedAt = now

	var steps []saga.Step
	if resolved.PointsUsed > 0 {
		steps = append(steps, ledgerStep("rewards.redeem", session,
			ledgerdomain.AccountRewards, ledgerdomain.SourceTypeSessionRedeem,
			session.ID.String(), -resolved.PointsUsed, decimal.Zero))
	}
	if settlement.WalletDebit.IsPositive() {
		steps = append(steps, ledgerStep("wallet.debit", session,
			ledgerdomain.AccountWallet, ledgerdomain.SourceTypeSessionWallet,
			session.ID.String(), 0, settlement.WalletDebit.Neg()))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := s.repo.UpdateActive(ctx, tx, session)
		if err != nil {
			return err
		}
		if !updated {
			return sessiondomain.ErrSessionClosed
		}
		if err := s.catalogRepo.ReleaseDevice(ctx, tx, session.DeviceID, session.ID); err != nil {
			return err
		}
		return s.saga.Record(ctx, tx, closeSagaKey(session.ID), steps)
	})
	if err != nil {
		return nil, err
	}

	s.reloadSnacks(ctx, session)
	s.execute(ctx, session, closeSagaKey(session.ID))

	s.log.Info("session closed",
		zap.String("session_id", session.ID.String()),
		zap.String("receipt_no", session.ReceiptNo),
		zap.String("payment_mode", session.PaymentMode),
		zap.String("discount_type", session.DiscountType),
		zap.String("final_amount", session.FinalAmount.String()),
	)
	s.audit(ctx, auditdomain.ActionSessionClosed, session, map[string]any{
		"receipt_no":         session.ReceiptNo,
		"payment_mode":       session.PaymentMode,
		"discount_type":      session.DiscountType,
		"final_amount":       session.FinalAmount.String(),
		"reward_points_used": session.RewardPointsUsed,
	})
	s.obsMetrics.RecordSessionClosed(ctx, branchID.String(), session.PaymentMode, discountLabel(session.DiscountType))

	return session, nil
}

// bookingCharge is the priced time component of a new session.
type bookingCharge struct {
	playerCount int
	duration    decimal.Decimal
	unit        pricing.DurationUnit
	length      time.Duration
	amount      decimal.Decimal
	earnBase    decimal.Decimal
}

func (s *Service) quoteBooking(kind sessiondomain.SessionKind, req sessiondomain.CreateSessionRequest, device *catalogdomain.Device, game *catalogdomain.Game, cfg *settingsdomain.Settings) (bookingCharge, error) {
	if kind == sessiondomain.SessionKindVR {
		if !game.VRPrice.IsPositive() {
			return bookingCharge{}, fmt.Errorf("%w: game %s has no vr price", settingsdomain.ErrConfigurationMissing, game.ID)
		}
		minutes := game.VRDurationMinutes
		if minutes <= 0 {
			minutes = s.policy.Get().VRDurationMinutes
		}
		duration := decimal.NewFromInt(int64(minutes))
		length, err := pricing.ToDuration(duration, pricing.UnitMinutes)
		if err != nil {
			return bookingCharge{}, pricingError(err)
		}
		return bookingCharge{
			playerCount: 1,
			duration:    duration,
			unit:        pricing.UnitMinutes,
			length:      length,
			amount:      game.VRPrice,
			earnBase:    game.VRPrice,
		}, nil
	}

	if req.PlayerCount <= 0 {
		return bookingCharge{}, invalid(sessiondomain.ErrInvalidPlayerCount)
	}
	if !req.Duration.IsPositive() {
		return bookingCharge{}, invalid(sessiondomain.ErrInvalidDuration)
	}
	unit := pricing.DurationUnit(req.DurationUnit)
	if unit == "" {
		unit = pricing.UnitMinutes
	}

	quote, err := pricing.ComputeBaseAmount(pricing.Input{
		PlayerCount:  req.PlayerCount,
		MaxPlayers:   device.MaxPlayers,
		Duration:     req.Duration,
		DurationUnit: unit,
	}, cfg.Tiers())
	if err != nil {
		return bookingCharge{}, pricingError(err)
	}
	length, err := pricing.ToDuration(req.Duration, unit)
	if err != nil {
		return bookingCharge{}, pricingError(err)
	}
	return bookingCharge{
		playerCount: quote.PlayerCount,
		duration:    req.Duration,
		unit:        unit,
		length:      length,
		amount:      quote.Amount,
		earnBase:    quote.Amount,
	}, nil
}

// buildSnackLines merges duplicate snacks, checks stock and prices each line.
func (s *Service) buildSnackLines(ctx context.Context, items []sessiondomain.SnackLine) ([]sessiondomain.SessionSnack, decimal.Decimal, error) {
	quantities := make(map[string]int64, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		snackID := strings.TrimSpace(item.SnackID)
		if item.Quantity < 1 {
			return nil, decimal.Zero, invalid(fmt.Errorf("%w: snack %s", sessiondomain.ErrInvalidQuantity, snackID))
		}
		if _, seen := quantities[snackID]; !seen {
			order = append(order, snackID)
		}
		quantities[snackID] += item.Quantity
	}

	total := decimal.Zero
	lines := make([]sessiondomain.SessionSnack, 0, len(order))
	for _, snackID := range order {
		snack, err := s.catalog.GetSnack(ctx, snackID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		qty := quantities[snackID]
		if qty > snack.Quantity {
			return nil, decimal.Zero, invalid(fmt.Errorf("%w: %s has %d left", sessiondomain.ErrInsufficientStock, snack.Name, snack.Quantity))
		}
		price := catalogservice.LineTotal(snack, qty)
		lines = append(lines, sessiondomain.SessionSnack{
			ID:        s.genID.Generate(),
			SnackID:   snack.ID,
			Name:      snack.Name,
			Quantity:  qty,
			UnitPrice: snack.Price,
			Price:     price,
		})
		total = total.Add(price)
	}
	return lines, total, nil
}

// refreshTotals recomputes the pre-discount total and re-resolves the booking discount against it.
func (s *Service) refreshTotals(session *sessiondomain.Session) error {
	session.TotalAmount = session.SessionAmount.Add(session.SnacksTotal)

	chosen, err := discount.Parse(session.DiscountType, session.DiscountValue)
	if err != nil {
		return invalid(err)
	}
	resolved, err := discount.Resolve(discount.Input{
		Discount: chosen,
		Flow:     discount.FlowBooking,
		Base:     session.TotalAmount,
	}, s.rules())
	if err != nil {
		return invalid(err)
	}
	applyDiscount(session, chosen, resolved)
	return nil
}

// applyDiscount keeps the operator's input in DiscountValue so a later
// re-resolve against a larger total starts from what was entered, not from
// the clamped amount.
func applyDiscount(session *sessiondomain.Session, chosen discount.Discount, resolved discount.Result) {
	session.DiscountType = string(resolved.Mode)
	session.DiscountValue = decimal.Zero
	if chosen.Mode() != discount.ModeNone {
		session.DiscountValue = chosen.Value()
	}
	session.DiscountAmount = resolved.DiscountAmount
	session.DiscountPercentage = resolved.DiscountPercentage
	session.GGPrice = resolved.GGPrice
	session.FinalAmount = resolved.FinalAmount
}

func pricingError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrConfigurationMissing):
		return err
	case errors.Is(err, pricing.ErrInvalidPlayerCount),
		errors.Is(err, pricing.ErrInvalidDuration),
		errors.Is(err, pricing.ErrInvalidDurationUnit):
		return invalid(err)
	default:
		return err
	}
}

func anchorOrDefault(anchor string) string {
	if anchor == "" {
		return sessiondomain.AnchorAfterEnd
	}
	return anchor
}

func discountLabel(mode string) string {
	if mode == "" {
		return "none"
	}
	return mode
}
