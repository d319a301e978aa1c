package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PostRequest moves a customer balance. Points and Amount are signed; debits are negative.
type PostRequest struct {
	BranchID   snowflake.ID
	CustomerID snowflake.ID
	Account    Account
	SourceType SourceType
	SourceKey  string
	Points     int64
	Amount     decimal.Decimal
	OccurredAt time.Time
}

type Service interface {
	// Post applies the entry once. It reports false when the source was already posted.
	Post(ctx context.Context, req PostRequest) (bool, error)
	// PostTx is Post inside the caller's transaction. It writes no audit entry.
	PostTx(ctx context.Context, tx *gorm.DB, req PostRequest) (bool, error)
	ListEntries(ctx context.Context, customerID snowflake.ID) ([]Entry, error)
}

var (
	ErrInvalidBranch     = errors.New("invalid_branch")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrInvalidSourceType = errors.New("invalid_source_type")
	ErrInvalidSourceKey  = errors.New("invalid_source_key")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInsufficientFunds = errors.New("insufficient_balance")
	ErrCustomerNotFound  = errors.New("customer_not_found")
)
