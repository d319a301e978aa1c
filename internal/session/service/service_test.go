package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	"github.com/smallbiznis/gglounge/internal/cache"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/gglounge/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/gglounge/internal/catalog/service"
	"github.com/smallbiznis/gglounge/internal/clock"
	"github.com/smallbiznis/gglounge/internal/config"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	customerrepo "github.com/smallbiznis/gglounge/internal/customer/repository"
	customerservice "github.com/smallbiznis/gglounge/internal/customer/service"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/gglounge/internal/ledger/service"
	"github.com/smallbiznis/gglounge/internal/loyalty"
	"github.com/smallbiznis/gglounge/internal/payment"
	"github.com/smallbiznis/gglounge/internal/saga"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	sessionrepo "github.com/smallbiznis/gglounge/internal/session/repository"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	settingsrepo "github.com/smallbiznis/gglounge/internal/settings/repository"
	settingsservice "github.com/smallbiznis/gglounge/internal/settings/service"
	"github.com/smallbiznis/gglounge/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testBranch = snowflake.ID(42)

type fixture struct {
	svc       *Service
	db        *gorm.DB
	clock     *clock.FakeClock
	runner    *saga.Runner
	ledger    ledgerdomain.Service
	customers customerdomain.Service
	catalog   catalogdomain.Service
	settings  settingsdomain.Service
	ctx       context.Context
}

func setupFixture(t *testing.T, policy config.Policy) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&sessiondomain.Session{},
		&sessiondomain.SessionSnack{},
		&catalogdomain.Device{},
		&catalogdomain.Game{},
		&catalogdomain.Snack{},
		&customerdomain.Customer{},
		&ledgerdomain.Entry{},
		&settingsdomain.Settings{},
		&saga.StepRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))

	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node})
	customers := customerservice.New(customerservice.Params{
		DB: db, Log: log, GenID: node, Repo: customerrepo.Provide(), Ledger: ledger,
	})
	catalog := catalogservice.New(catalogservice.Params{
		Log:     log,
		GenID:   node,
		Devices: repository.ProvideStore[catalogdomain.Device](db),
		Games:   repository.ProvideStore[catalogdomain.Game](db),
		Snacks:  repository.ProvideStore[catalogdomain.Snack](db),
	})
	settings := settingsservice.New(settingsservice.Params{
		DB: db, Log: log, GenID: node, Repo: settingsrepo.Provide(), Cache: cache.NewMemorySettingsCache(),
	})
	runner := saga.NewRunner(saga.Params{DB: db, Log: log, GenID: node})
	holder := config.NewStaticPolicyHolder(policy)

	svc := New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Policy:      holder,
		Repo:        sessionrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Catalog:     catalog,
		Customers:   customers,
		Settings:    settings,
		Ledger:      ledger,
		Reconciler:  payment.NewReconciler(holder),
		Saga:        runner,
	}).(*Service)

	return &fixture{
		svc:       svc,
		db:        db,
		clock:     fake,
		runner:    runner,
		ledger:    ledger,
		customers: customers,
		catalog:   catalog,
		settings:  settings,
		ctx:       branchcontext.WithOperator(branchcontext.WithBranchID(context.Background(), testBranch), "op-1"),
	}
}

func (f *fixture) seedSettings(t *testing.T, deviceType string) {
	t.Helper()
	_, err := f.settings.Upsert(f.ctx, settingsdomain.UpsertRequest{
		DeviceType:         deviceType,
		SinglePrice:        decimal.NewFromInt(100),
		DualPrice:          decimal.NewFromInt(90),
		GroupPrice:         decimal.NewFromInt(80),
		RewardPercentage:   decimal.NewFromInt(6),
		PointsToRupeeRatio: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
}

func (f *fixture) seedDevice(t *testing.T, deviceType, kind string) *catalogdomain.Device {
	t.Helper()
	device, err := f.catalog.CreateDevice(f.ctx, catalogdomain.CreateDeviceRequest{Name: "Bay " + deviceType, Type: deviceType, Kind: kind})
	require.NoError(t, err)
	return device
}

func (f *fixture) seedGame(t *testing.T, vrPrice int64, vrMinutes int) *catalogdomain.Game {
	t.Helper()
	game, err := f.catalog.CreateGame(f.ctx, catalogdomain.CreateGameRequest{
		Name:              "Rocket League",
		VRPrice:           decimal.NewFromInt(vrPrice),
		VRDurationMinutes: vrMinutes,
	})
	require.NoError(t, err)
	return game
}

func (f *fixture) seedSnack(t *testing.T, price, stock int64) *catalogdomain.Snack {
	t.Helper()
	snack, err := f.catalog.CreateSnack(f.ctx, catalogdomain.CreateSnackRequest{
		Name:     "Cola",
		Price:    decimal.NewFromInt(price),
		Quantity: stock,
	})
	require.NoError(t, err)
	return snack
}

func (f *fixture) seedCustomer(t *testing.T, phone string) customerdomain.Customer {
	t.Helper()
	customer, err := f.customers.Create(f.ctx, customerdomain.CreateCustomerRequest{Name: "Ravi", Phone: phone})
	require.NoError(t, err)
	return customer
}

func (f *fixture) reloadDevice(t *testing.T, id snowflake.ID) catalogdomain.Device {
	t.Helper()
	var device catalogdomain.Device
	require.NoError(t, f.db.First(&device, "id = ?", id).Error)
	return device
}

func (f *fixture) reloadCustomer(t *testing.T, id snowflake.ID) customerdomain.Customer {
	t.Helper()
	var customer customerdomain.Customer
	require.NoError(t, f.db.First(&customer, "id = ?", id).Error)
	return customer
}

func (f *fixture) reloadGame(t *testing.T, id snowflake.ID) catalogdomain.Game {
	t.Helper()
	var game catalogdomain.Game
	require.NoError(t, f.db.First(&game, "id = ?", id).Error)
	return game
}

func (f *fixture) reloadSnack(t *testing.T, id snowflake.ID) catalogdomain.Snack {
	t.Helper()
	var snack catalogdomain.Snack
	require.NoError(t, f.db.First(&snack, "id = ?", id).Error)
	return snack
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func assertTime(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestEndToEndStandardSession(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	snack := f.seedSnack(t, 20, 10)

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		Customer:     &customerdomain.CreateCustomerRequest{Name: "Asha", Phone: "9876500001"},
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
		PaymentMode:  "Cash",
		Snacks: []sessiondomain.SnackLine{
			{SnackID: snack.ID.String(), Quantity: 1},
			{SnackID: snack.ID.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, session.Warnings)
	assert.Equal(t, sessiondomain.SessionStatusActive, session.Status)
	assert.Equal(t, sessiondomain.SessionKindStandard, session.Kind)
	assert.Equal(t, "op-1", session.CreatedBy)
	assertDecimal(t, "100", session.SessionAmount)
	assertDecimal(t, "40", session.SnacksTotal)
	assertDecimal(t, "140", session.TotalAmount)
	assertDecimal(t, "140", session.FinalAmount)
	assert.Equal(t, int64(6), session.GGPointsEarned)
	assertTime(t, f.clock.Now().Add(time.Hour), session.SessionOut)
	require.Len(t, session.Snacks, 1)
	assert.Equal(t, int64(2), session.Snacks[0].Quantity)
	assertDecimal(t, "40", session.Snacks[0].Price)

	booked := f.reloadDevice(t, device.ID)
	assert.Equal(t, catalogdomain.DeviceStatusBooked, booked.Status)
	require.NotNil(t, booked.CurrentSessionID)
	assert.Equal(t, session.ID, *booked.CurrentSessionID)
	assert.Equal(t, int64(1), f.reloadGame(t, game.ID).Popularity)
	assert.Equal(t, int64(8), f.reloadSnack(t, snack.ID).Quantity)
	assert.Equal(t, int64(6), f.reloadCustomer(t, session.CustomerID).TotalRewards)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "percentage", Value: decimal.NewFromInt(10)},
		PaymentMode: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, sessiondomain.SessionStatusClosed, closed.Status)
	assert.Equal(t, "percentage", closed.DiscountType)
	assertDecimal(t, "14", closed.DiscountAmount)
	assertDecimal(t, "126", closed.FinalAmount)
	assertDecimal(t, "126", closed.AmountPaid)
	assertDecimal(t, "126", closed.CashAmount)
	assert.Equal(t, string(payment.ModeCash), closed.PaymentMode)
	assert.Len(t, closed.ReceiptNo, 26)
	require.NotNil(t, closed.ClosedAt)

	released := f.reloadDevice(t, device.ID)
	assert.Equal(t, catalogdomain.DeviceStatusOpen, released.Status)
	assert.Nil(t, released.CurrentSessionID)

	// Points are earned on the pre-discount session amount (100 at 6%), not on
	// the 126 final amount, and closing credits nothing further.
	assert.Equal(t, int64(6), closed.GGPointsEarned)
	assert.Equal(t, int64(6), f.reloadCustomer(t, session.CustomerID).TotalRewards)
	entries, err := f.ledger.ListEntries(f.ctx, session.CustomerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.AccountRewards, entries[0].Account)
	assert.Equal(t, ledgerdomain.SourceTypeSessionEarn, entries[0].SourceType)
	assert.Equal(t, int64(6), entries[0].Points)

	stored, err := f.svc.GetSession(f.ctx, session.ID.String())
	require.NoError(t, err)
	assert.Equal(t, closed.ReceiptNo, stored.ReceiptNo)
	assertDecimal(t, "126", stored.FinalAmount)
	require.Len(t, stored.Snacks, 1)
}

func TestCreateRequiresConfiguration(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	device := f.seedDevice(t, "Xbox", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000001")

	_, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(30),
		DurationUnit: "minutes",
	})
	assert.ErrorIs(t, err, settingsdomain.ErrConfigurationMissing)
	assert.Equal(t, catalogdomain.DeviceStatusOpen, f.reloadDevice(t, device.ID).Status)
}

func TestCreateValidation(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000002")
	snack := f.seedSnack(t, 20, 3)

	base := sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  2,
		Duration:     decimal.NewFromInt(30),
		DurationUnit: "minutes",
	}

	noCustomer := base
	noCustomer.CustomerID = ""
	_, err := f.svc.CreateSession(f.ctx, noCustomer)
	assert.ErrorIs(t, err, sessiondomain.ErrValidation)

	noPlayers := base
	noPlayers.PlayerCount = 0
	_, err = f.svc.CreateSession(f.ctx, noPlayers)
	assert.ErrorIs(t, err, sessiondomain.ErrValidation)
	assert.ErrorIs(t, err, sessiondomain.ErrInvalidPlayerCount)

	noDuration := base
	noDuration.Duration = decimal.Zero
	_, err = f.svc.CreateSession(f.ctx, noDuration)
	assert.ErrorIs(t, err, sessiondomain.ErrInvalidDuration)

	tooMany := base
	tooMany.Snacks = []sessiondomain.SnackLine{{SnackID: snack.ID.String(), Quantity: 2}, {SnackID: snack.ID.String(), Quantity: 2}}
	_, err = f.svc.CreateSession(f.ctx, tooMany)
	assert.ErrorIs(t, err, sessiondomain.ErrValidation)
	assert.ErrorIs(t, err, sessiondomain.ErrInsufficientStock)

	points := base
	points.Discount = &sessiondomain.DiscountInput{Mode: "gg_points", Value: decimal.NewFromInt(10)}
	_, err = f.svc.CreateSession(f.ctx, points)
	assert.ErrorIs(t, err, sessiondomain.ErrPointsAtBooking)

	var count int64
	require.NoError(t, f.db.Model(&sessiondomain.Session{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, catalogdomain.DeviceStatusOpen, f.reloadDevice(t, device.ID).Status)
}

func TestCreateClampsPlayersToDeviceCapacity(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device, err := f.catalog.CreateDevice(f.ctx, catalogdomain.CreateDeviceRequest{Name: "Duo", Type: "PS5", MaxPlayers: 2})
	require.NoError(t, err)
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000003")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  4,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, session.PlayerCount)
	assertDecimal(t, "180", session.SessionAmount)
}

func TestCreateOnBookedDeviceFails(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000004")

	req := sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	}
	_, err := f.svc.CreateSession(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.CreateSession(f.ctx, req)
	assert.ErrorIs(t, err, sessiondomain.ErrDeviceUnavailable)
}

// lostRaceRepo books nothing, as if another create took the device between
// the availability check and the booking.
type lostRaceRepo struct {
	catalogdomain.Repository
}

func (lostRaceRepo) BookDevice(context.Context, *gorm.DB, snowflake.ID, snowflake.ID) (bool, error) {
	return false, nil
}

func TestCreateLosingDeviceRaceLeavesNoCustomer(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	f.svc.catalogRepo = lostRaceRepo{Repository: f.svc.catalogRepo}

	_, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		Customer:     &customerdomain.CreateCustomerRequest{Name: "Meera", Phone: "9876500009"},
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	assert.ErrorIs(t, err, sessiondomain.ErrDeviceUnavailable)

	var customers, sessions, steps int64
	require.NoError(t, f.db.Model(&customerdomain.Customer{}).Count(&customers).Error)
	require.NoError(t, f.db.Model(&sessiondomain.Session{}).Count(&sessions).Error)
	require.NoError(t, f.db.Model(&saga.StepRecord{}).Count(&steps).Error)
	assert.Zero(t, customers)
	assert.Zero(t, sessions)
	assert.Zero(t, steps)
}

func TestCreateNeedsCustomer(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)

	_, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   "   ",
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	assert.ErrorIs(t, err, sessiondomain.ErrValidation)
}

func TestExtendMergesDurationUnits(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000005")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(30),
		DurationUnit: "minutes",
	})
	require.NoError(t, err)
	start := session.SessionIn
	assertDecimal(t, "50", session.SessionAmount)
	assert.Equal(t, int64(3), session.GGPointsEarned)

	extended, err := f.svc.ExtendSession(f.ctx, session.ID.String(), sessiondomain.ExtendSessionRequest{
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)
	assertDecimal(t, "1.5", extended.Duration)
	assert.Equal(t, "hours", extended.DurationUnit)
	assertDecimal(t, "150", extended.SessionAmount)
	assertDecimal(t, "150", extended.TotalAmount)
	assert.Equal(t, 1, extended.ExtensionCount)
	assertTime(t, start.Add(90*time.Minute), extended.SessionOut)
	assert.Equal(t, int64(9), extended.GGPointsEarned)
	assert.Equal(t, int64(9), f.reloadCustomer(t, customer.ID).TotalRewards)

	again, err := f.svc.ExtendSession(f.ctx, session.ID.String(), sessiondomain.ExtendSessionRequest{
		Duration:     decimal.NewFromInt(30),
		DurationUnit: "minutes",
		PlayerCount:  2,
		Anchor:       sessiondomain.AnchorBeforeEnd,
	})
	require.NoError(t, err)
	assertDecimal(t, "2", again.Duration)
	assert.Equal(t, "hours", again.DurationUnit)
	assert.Equal(t, 2, again.PlayerCount)
	assertDecimal(t, "240", again.SessionAmount)
	assertTime(t, start.Add(2*time.Hour), again.SessionOut)
	assert.Equal(t, int64(14), f.reloadCustomer(t, customer.ID).TotalRewards)
}

func TestBookingDiscountFollowsTotal(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000006")
	snack := f.seedSnack(t, 20, 10)

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
		Discount:     &sessiondomain.DiscountInput{Mode: "percentage", Value: decimal.NewFromInt(10)},
	})
	require.NoError(t, err)
	assertDecimal(t, "10", session.DiscountAmount)
	assertDecimal(t, "90", session.FinalAmount)

	withSnacks, err := f.svc.AddSnacksToSession(f.ctx, session.ID.String(), sessiondomain.AddSnacksRequest{
		Snacks: []sessiondomain.SnackLine{{SnackID: snack.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)
	assertDecimal(t, "40", withSnacks.SnacksTotal)
	assertDecimal(t, "140", withSnacks.TotalAmount)
	assertDecimal(t, "14", withSnacks.DiscountAmount)
	assertDecimal(t, "126", withSnacks.FinalAmount)
	assert.Equal(t, 1, withSnacks.SnackBatchCount)
	require.Len(t, withSnacks.Snacks, 1)
	assert.Equal(t, 1, withSnacks.Snacks[0].Batch)
	assert.Equal(t, int64(8), f.reloadSnack(t, snack.ID).Quantity)

	_, err = f.svc.AddSnacksToSession(f.ctx, session.ID.String(), sessiondomain.AddSnacksRequest{
		Snacks: []sessiondomain.SnackLine{{SnackID: snack.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{PaymentMode: "Upi"})
	require.NoError(t, err)
	assertDecimal(t, "160", closed.TotalAmount)
	assertDecimal(t, "16", closed.DiscountAmount)
	assertDecimal(t, "144", closed.FinalAmount)
	assertDecimal(t, "144", closed.UpiAmount)
	assert.Len(t, closed.Snacks, 2)
}

func TestBookingAmountDiscountKeepsEnteredValue(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000016")
	snack := f.seedSnack(t, 20, 10)

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
		Discount:     &sessiondomain.DiscountInput{Mode: "amount", Value: decimal.NewFromInt(120)},
	})
	require.NoError(t, err)
	assertDecimal(t, "100", session.DiscountAmount)
	assertDecimal(t, "0", session.FinalAmount)
	assertDecimal(t, "120", session.DiscountValue)

	withSnacks, err := f.svc.AddSnacksToSession(f.ctx, session.ID.String(), sessiondomain.AddSnacksRequest{
		Snacks: []sessiondomain.SnackLine{{SnackID: snack.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)
	assertDecimal(t, "140", withSnacks.TotalAmount)
	assertDecimal(t, "120", withSnacks.DiscountAmount)
	assertDecimal(t, "20", withSnacks.FinalAmount)
	assertDecimal(t, "120", withSnacks.DiscountValue)

	var stored sessiondomain.Session
	require.NoError(t, f.db.First(&stored, "id = ?", session.ID).Error)
	assertDecimal(t, "120", stored.DiscountValue)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{PaymentMode: "Cash"})
	require.NoError(t, err)
	assertDecimal(t, "70", closed.DiscountAmount)
	assertDecimal(t, "70", closed.FinalAmount)
}

func TestCloseWithZeroAmountRatioGivesNoDiscount(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.CloseAmountCapRatio = 0
	f := setupFixture(t, policy)
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000017")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "amount", Value: decimal.NewFromInt(30)},
		PaymentMode: "Cash",
	})
	require.NoError(t, err)
	assertDecimal(t, "0", closed.DiscountAmount)
	assertDecimal(t, "100", closed.FinalAmount)
	assertDecimal(t, "100", closed.CashAmount)
}

func TestExtendSucceedsWhenSnackReloadFails(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000018")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Migrator().DropTable(&sessiondomain.SessionSnack{}))

	extended, err := f.svc.ExtendSession(f.ctx, session.ID.String(), sessiondomain.ExtendSessionRequest{
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, extended.ExtensionCount)
	assertDecimal(t, "200", extended.SessionAmount)

	var stored sessiondomain.Session
	require.NoError(t, f.db.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, 1, stored.ExtensionCount)
	assertDecimal(t, "200", stored.SessionAmount)
}

func TestCloseDiscountCaps(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000007")

	open := func() *sessiondomain.Session {
		device := f.seedDevice(t, "PS5", "")
		session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
			DeviceID:     device.ID.String(),
			CustomerID:   customer.ID.String(),
			GameID:       game.ID.String(),
			PlayerCount:  1,
			Duration:     decimal.NewFromInt(1),
			DurationUnit: "hours",
		})
		require.NoError(t, err)
		return session
	}

	pct, err := f.svc.CloseSession(f.ctx, open().ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "percentage", Value: decimal.NewFromInt(80)},
		PaymentMode: "Cash",
	})
	require.NoError(t, err)
	assertDecimal(t, "50", pct.DiscountPercentage)
	assertDecimal(t, "50", pct.FinalAmount)

	amount, err := f.svc.CloseSession(f.ctx, open().ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "amount", Value: decimal.NewFromInt(90)},
		PaymentMode: "Cash",
	})
	require.NoError(t, err)
	assertDecimal(t, "50", amount.DiscountAmount)
	assertDecimal(t, "50", amount.FinalAmount)
}

func TestCloseRedeemsPointsClampedToBalance(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000008")

	_, err := f.ledger.Post(f.ctx, ledgerdomain.PostRequest{
		BranchID:   testBranch,
		CustomerID: customer.ID,
		Account:    ledgerdomain.AccountRewards,
		SourceType: ledgerdomain.SourceTypeSessionEarn,
		SourceKey:  "earlier-visit",
		Points:     194,
	})
	require.NoError(t, err)

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), f.reloadCustomer(t, customer.ID).TotalRewards)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "gg_points", Value: decimal.NewFromInt(10000)},
		PaymentMode: "Cash",
	})
	require.NoError(t, err)
	assert.Equal(t, "gg_points", closed.DiscountType)
	assert.Equal(t, int64(200), closed.RewardPointsUsed)
	assertDecimal(t, "20", closed.GGPrice)
	assertDecimal(t, "0", closed.DiscountAmount)
	assertDecimal(t, "80", closed.FinalAmount)
	assert.Equal(t, int64(0), f.reloadCustomer(t, customer.ID).TotalRewards)
}

func TestCloseRejectPolicyRefusesExcessRedemption(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.RedemptionPolicy = config.RedemptionPolicyReject
	f := setupFixture(t, policy)
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000009")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)

	_, err = f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "gg_points", Value: decimal.NewFromInt(500)},
		PaymentMode: "Cash",
	})
	assert.ErrorIs(t, err, loyalty.ErrRedemptionExceedsCeiling)
}

func TestClosePaymentRejections(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000010")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(30),
		DurationUnit: "minutes",
	})
	require.NoError(t, err)
	assertDecimal(t, "50", session.TotalAmount)

	_, err = f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		PaymentMode: "Part-paid",
		Cash:        decimal.NewFromInt(30),
		Upi:         decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, payment.ErrPaymentMismatch)

	_, err = f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{PaymentMode: "Membership"})
	assert.ErrorIs(t, err, payment.ErrInsufficientWalletBalance)

	_, err = f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{PaymentMode: "Bitcoin"})
	assert.ErrorIs(t, err, sessiondomain.ErrValidation)

	stored, err := f.svc.GetSession(f.ctx, session.ID.String())
	require.NoError(t, err)
	assert.Equal(t, sessiondomain.SessionStatusActive, stored.Status)
	assert.Equal(t, catalogdomain.DeviceStatusBooked, f.reloadDevice(t, device.ID).Status)

	_, err = f.customers.TopUpWallet(f.ctx, customerdomain.TopUpRequest{
		CustomerID: customer.ID.String(),
		Amount:     decimal.NewFromInt(40),
		Reference:  "plan-silver",
	})
	require.NoError(t, err)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		PaymentMode: "Part-paid",
		Cash:        decimal.NewFromInt(20),
		Upi:         decimal.NewFromInt(0),
		Membership:  decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assertDecimal(t, "30", closed.MembershipAmount)
	assertDecimal(t, "10", f.reloadCustomer(t, customer.ID).Wallet)
}

func TestClosedSessionIsTerminal(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000011")
	snack := f.seedSnack(t, 20, 10)

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
	})
	require.NoError(t, err)

	_, err = f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{PaymentMode: "Cash"})
	require.NoError(t, err)

	_, err = f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{PaymentMode: "Cash"})
	assert.ErrorIs(t, err, sessiondomain.ErrSessionClosed)
	_, err = f.svc.ExtendSession(f.ctx, session.ID.String(), sessiondomain.ExtendSessionRequest{
		Duration: decimal.NewFromInt(1), DurationUnit: "hours",
	})
	assert.ErrorIs(t, err, sessiondomain.ErrSessionClosed)
	_, err = f.svc.AddSnacksToSession(f.ctx, session.ID.String(), sessiondomain.AddSnacksRequest{
		Snacks: []sessiondomain.SnackLine{{SnackID: snack.ID.String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, sessiondomain.ErrSessionClosed)

	_, err = f.svc.GetSession(f.ctx, snowflake.ID(99).String())
	assert.ErrorIs(t, err, sessiondomain.ErrSessionNotFound)
}

func TestVRSessionUsesGamePrice(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "VR")
	device := f.seedDevice(t, "VR", "vr")
	game := f.seedGame(t, 250, 20)
	customer := f.seedCustomer(t, "9000000012")

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:   device.ID.String(),
		CustomerID: customer.ID.String(),
		GameID:     game.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, sessiondomain.SessionKindVR, session.Kind)
	assert.Equal(t, 1, session.PlayerCount)
	assertDecimal(t, "250", session.SessionAmount)
	assertDecimal(t, "20", session.Duration)
	assert.Equal(t, "minutes", session.DurationUnit)
	assertTime(t, session.SessionIn.Add(20*time.Minute), session.SessionOut)
	assert.Equal(t, int64(15), session.GGPointsEarned)

	_, err = f.svc.ExtendSession(f.ctx, session.ID.String(), sessiondomain.ExtendSessionRequest{
		Duration: decimal.NewFromInt(10), DurationUnit: "minutes",
	})
	assert.ErrorIs(t, err, sessiondomain.ErrNotExtendable)

	closed, err := f.svc.CloseSession(f.ctx, session.ID.String(), sessiondomain.CloseSessionRequest{
		Discount:    &sessiondomain.DiscountInput{Mode: "amount", Value: decimal.NewFromInt(50)},
		PaymentMode: "Cash",
	})
	require.NoError(t, err)
	assertDecimal(t, "200", closed.FinalAmount)
	assertDecimal(t, "20", closed.DiscountPercentage)
	assert.Equal(t, catalogdomain.DeviceStatusOpen, f.reloadDevice(t, device.ID).Status)
}

func TestVRGameWithoutPriceIsMissingConfiguration(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "VR")
	device := f.seedDevice(t, "VR", "vr")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000013")

	_, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:   device.ID.String(),
		CustomerID: customer.ID.String(),
		GameID:     game.ID.String(),
	})
	assert.ErrorIs(t, err, settingsdomain.ErrConfigurationMissing)
}

func TestDependentWriteFailureIsRetriedOnce(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	device := f.seedDevice(t, "PS5", "")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000014")
	snack := f.seedSnack(t, 20, 10)

	f.runner.Register(handlerGamePopularity, func(context.Context, *gorm.DB, datatypes.JSONMap) error {
		return errors.New("games table unavailable")
	})

	session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
		DeviceID:     device.ID.String(),
		CustomerID:   customer.ID.String(),
		GameID:       game.ID.String(),
		PlayerCount:  1,
		Duration:     decimal.NewFromInt(1),
		DurationUnit: "hours",
		Snacks:       []sessiondomain.SnackLine{{SnackID: snack.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, session.Warnings, 1)
	assert.Contains(t, session.Warnings[0], "dependent_write_failed")
	assert.Contains(t, session.Warnings[0], "game.popularity")
	assert.Equal(t, int64(0), f.reloadGame(t, game.ID).Popularity)
	assert.Equal(t, int64(7), f.reloadSnack(t, snack.ID).Quantity)
	assert.Equal(t, int64(6), f.reloadCustomer(t, customer.ID).TotalRewards)
	assert.Equal(t, catalogdomain.DeviceStatusBooked, f.reloadDevice(t, device.ID).Status)

	f.runner.Register(handlerGamePopularity, f.svc.applyGamePopularity)

	retried, err := f.svc.RetryPending(f.ctx, session.ID.String())
	require.NoError(t, err)
	assert.Empty(t, retried.Warnings)
	assert.Equal(t, int64(1), f.reloadGame(t, game.ID).Popularity)
	assert.Equal(t, int64(7), f.reloadSnack(t, snack.ID).Quantity)
	assert.Equal(t, int64(6), f.reloadCustomer(t, customer.ID).TotalRewards)

	_, err = f.svc.RetryPending(f.ctx, session.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.reloadGame(t, game.ID).Popularity)
}

func TestListSessionsFilters(t *testing.T) {
	f := setupFixture(t, config.DefaultPolicy())
	f.seedSettings(t, "PS5")
	game := f.seedGame(t, 0, 0)
	customer := f.seedCustomer(t, "9000000015")

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		device := f.seedDevice(t, "PS5", "")
		session, err := f.svc.CreateSession(f.ctx, sessiondomain.CreateSessionRequest{
			DeviceID:     device.ID.String(),
			CustomerID:   customer.ID.String(),
			GameID:       game.ID.String(),
			PlayerCount:  1,
			Duration:     decimal.NewFromInt(30),
			DurationUnit: "minutes",
		})
		require.NoError(t, err)
		ids = append(ids, session.ID)
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.CloseSession(f.ctx, ids[0].String(), sessiondomain.CloseSessionRequest{PaymentMode: "Cash"})
	require.NoError(t, err)

	active, err := f.svc.ListSessions(f.ctx, sessiondomain.ListSessionsRequest{Status: "Active", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, ids[2], active[0].ID)
	assert.Equal(t, ids[1], active[1].ID)

	all, err := f.svc.ListSessions(f.ctx, sessiondomain.ListSessionsRequest{CustomerID: customer.ID.String()})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.ListSessions(f.ctx, sessiondomain.ListSessionsRequest{Sort: "receipt_no; drop table"})
	assert.ErrorIs(t, err, sessiondomain.ErrValidation)

	_, err = f.svc.ListSessions(context.Background(), sessiondomain.ListSessionsRequest{})
	assert.ErrorIs(t, err, sessiondomain.ErrInvalidBranch)
}
