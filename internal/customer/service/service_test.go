package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/internal/branchcontext"
	"github.com/smallbiznis/gglounge/internal/customer/domain"
	"github.com/smallbiznis/gglounge/internal/customer/repository"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/gglounge/internal/ledger/service"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCustomerService(t *testing.T) (domain.Service, ledgerdomain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}, &ledgerdomain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: zap.NewNop(), GenID: node})
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Ledger: ledger,
	})
	return svc, ledger
}

func branchCtx() context.Context {
	return branchcontext.WithBranchID(context.Background(), snowflake.ID(11))
}

func TestCreateAndGetCustomer(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := branchCtx()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Asha", Phone: "+91 98765-43210"})
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", created.Phone)
	assert.True(t, created.Wallet.IsZero())

	got, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, int64(0), got.TotalRewards)
}

func TestCreateRejectsDuplicatePhoneAndBadInput(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := branchCtx()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Asha", Phone: "9876543210"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ravi", Phone: "98765 43210"})
	assert.ErrorIs(t, err, domain.ErrPhoneTaken)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "", Phone: "9000000000"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ravi", Phone: "9000000000", Email: "not-an-email"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = svc.Create(context.Background(), domain.CreateCustomerRequest{Name: "Ravi", Phone: "9000000000"})
	assert.ErrorIs(t, err, domain.ErrInvalidBranch)
}

func TestTopUpWalletIsIdempotentPerReference(t *testing.T) {
	svc, ledger := setupCustomerService(t)
	ctx := branchCtx()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Asha", Phone: "9876543210"})
	require.NoError(t, err)

	req := domain.TopUpRequest{CustomerID: created.ID.String(), Amount: decimal.NewFromInt(500), Reference: "plan-gold-1"}
	updated, err := svc.TopUpWallet(ctx, req)
	require.NoError(t, err)
	assert.True(t, updated.Wallet.Equal(decimal.NewFromInt(500)), updated.Wallet.String())

	again, err := svc.TopUpWallet(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Wallet.Equal(decimal.NewFromInt(500)), again.Wallet.String())

	entries, err := ledger.ListEntries(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTopUpWalletValidation(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := branchCtx()

	_, err := svc.TopUpWallet(ctx, domain.TopUpRequest{CustomerID: "123", Amount: decimal.Zero})
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = svc.TopUpWallet(ctx, domain.TopUpRequest{CustomerID: "123", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCustomers(t *testing.T) {
	svc, _ := setupCustomerService(t)
	ctx := branchCtx()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: fmt.Sprintf("Player %d", i), Phone: fmt.Sprintf("900000000%d", i)})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 2)
	assert.True(t, resp.HasMore)

	filtered, err := svc.List(ctx, domain.ListCustomerRequest{Phone: "9000000001"})
	require.NoError(t, err)
	require.Len(t, filtered.Customers, 1)
	assert.Equal(t, "Player 1", filtered.Customers[0].Name)
}
