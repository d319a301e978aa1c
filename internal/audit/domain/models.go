package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gglounge/pkg/db/pagination"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeOperator ActorType = "operator"
	ActorTypeSystem   ActorType = "system"
)

// AuditLog records one operator action against a console resource.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	BranchID   *snowflake.ID     `json:"branch_id,omitempty" gorm:"index"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null;index"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text;index"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// ListFilter narrows a branch's audit trail. ActorID is the operator id.
type ListFilter struct {
	BranchID   snowflake.ID
	Action     string
	ActorID    string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Page       pagination.Pagination
}
