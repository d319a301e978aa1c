package saga

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusApplied StepStatus = "applied"
	StepStatusFailed  StepStatus = "failed"
)

// StepRecord is the persisted marker of one saga step. (saga_key, step) is unique.
type StepRecord struct {
	ID        snowflake.ID      `json:"id" gorm:"primaryKey"`
	SagaKey   string            `json:"saga_key" gorm:"type:text;not null;uniqueIndex:ux_saga_steps_key_step,priority:1"`
	Step      string            `json:"step" gorm:"type:text;not null;uniqueIndex:ux_saga_steps_key_step,priority:2"`
	Handler   string            `json:"handler" gorm:"type:text;not null"`
	Sequence  int               `json:"sequence" gorm:"not null;default:0"`
	Status    StepStatus        `json:"status" gorm:"type:text;not null;index"`
	Payload   datatypes.JSONMap `json:"payload,omitempty" gorm:"type:jsonb"`
	Attempts  int               `json:"attempts" gorm:"not null;default:0"`
	LastError string            `json:"last_error,omitempty" gorm:"type:text"`
	AppliedAt *time.Time        `json:"applied_at,omitempty"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (StepRecord) TableName() string { return "saga_steps" }
