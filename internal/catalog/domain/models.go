package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type DeviceStatus string

const (
	DeviceStatusOpen   DeviceStatus = "open"
	DeviceStatusBooked DeviceStatus = "booked"
)

// DeviceKind selects how sessions on the device are priced.
type DeviceKind string

const (
	DeviceKindStandard DeviceKind = "standard"
	DeviceKindVR       DeviceKind = "vr"
)

// Device is a bookable console or VR rig. Status mirrors whether CurrentSessionID is set.
type Device struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	BranchID         snowflake.ID  `json:"branch_id" gorm:"not null;index"`
	Name             string        `json:"name" gorm:"type:text;not null"`
	Type             string        `json:"type" gorm:"type:text;not null;index"`
	Kind             DeviceKind    `json:"kind" gorm:"type:text;not null;default:'standard'"`
	MaxPlayers       int           `json:"max_players" gorm:"not null;default:4"`
	Status           DeviceStatus  `json:"status" gorm:"type:text;not null;default:'open';index"`
	CurrentSessionID *snowflake.ID `json:"current_session_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Device) TableName() string { return "devices" }

type Game struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	BranchID          snowflake.ID    `json:"branch_id" gorm:"not null;index"`
	Name              string          `json:"name" gorm:"type:text;not null"`
	Popularity        int64           `json:"popularity" gorm:"not null;default:0"`
	VRPrice           decimal.Decimal `json:"vr_price" gorm:"column:vr_price;type:numeric;not null;default:0"`
	VRDurationMinutes int             `json:"vr_duration_minutes" gorm:"column:vr_duration_minutes;not null;default:0"`
	CreatedAt         time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Game) TableName() string { return "games" }

type Snack struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	BranchID  snowflake.ID    `json:"branch_id" gorm:"not null;index"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric;not null"`
	Quantity  int64           `json:"quantity" gorm:"not null;default:0"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Snack) TableName() string { return "snacks" }
