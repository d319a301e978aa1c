package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateDeviceRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Type       string `json:"type" validate:"required,max=64"`
	Kind       string `json:"kind" validate:"omitempty,oneof=standard vr"`
	MaxPlayers int    `json:"max_players" validate:"omitempty,gte=1,lte=4"`
}

type ListDevicesRequest struct {
	Status string `form:"status"`
	Type   string `form:"type"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
}

type CreateGameRequest struct {
	Name              string          `json:"name" validate:"required,max=120"`
	VRPrice           decimal.Decimal `json:"vr_price" validate:"gte=0"`
	VRDurationMinutes int             `json:"vr_duration_minutes" validate:"gte=0"`
}

type CreateSnackRequest struct {
	Name     string          `json:"name" validate:"required,max=120"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity int64           `json:"quantity" validate:"gte=0"`
}

type Service interface {
	CreateDevice(ctx context.Context, req CreateDeviceRequest) (*Device, error)
	GetDevice(ctx context.Context, id string) (*Device, error)
	ListDevices(ctx context.Context, req ListDevicesRequest) ([]*Device, error)
	CreateGame(ctx context.Context, req CreateGameRequest) (*Game, error)
	GetGame(ctx context.Context, id string) (*Game, error)
	ListGames(ctx context.Context) ([]*Game, error)
	CreateSnack(ctx context.Context, req CreateSnackRequest) (*Snack, error)
	GetSnack(ctx context.Context, id string) (*Snack, error)
	ListSnacks(ctx context.Context) ([]*Snack, error)
}

var (
	ErrInvalidBranch     = errors.New("invalid_branch")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_device_status")
	ErrDeviceNotFound    = errors.New("device_not_found")
	ErrGameNotFound      = errors.New("game_not_found")
	ErrSnackNotFound     = errors.New("snack_not_found")
	ErrDeviceBusy        = errors.New("device_busy")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
