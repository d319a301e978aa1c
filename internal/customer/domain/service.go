package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gglounge/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCustomerRequest struct {
	PageToken   string
	PageSize    int32
	Name        string
	Phone       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	Phone       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,min=6,max=20"`
	Email string `json:"email" validate:"omitempty,email"`
}

type GetCustomerRequest struct {
	ID string
}

// TopUpRequest credits the wallet, typically from a membership plan purchase.
// Reference makes the credit idempotent.
type TopUpRequest struct {
	CustomerID string          `json:"customer_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	Reference  string          `json:"reference" validate:"omitempty,max=128"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	// CreateTx is Create inside the caller's transaction.
	CreateTx(context.Context, *gorm.DB, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	TopUpWallet(context.Context, TopUpRequest) (Customer, error)
}

var (
	ErrInvalidBranch = errors.New("invalid_branch")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidPhone  = errors.New("invalid_phone")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidID     = errors.New("invalid_id")

	ErrInvalidPageToken = pagination.ErrInvalidPageToken
	ErrPhoneTaken    = errors.New("phone_taken")
	ErrNotFound      = errors.New("not_found")
)
