package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

// AuditLog is an append-only record of a state-changing action.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid;index"`
	ActorRole  *enums.UserRole   `gorm:"column:actor_role;type:text"`
	Action     enums.AuditAction `gorm:"column:action;type:text;not null;index"`
	EntityType string            `gorm:"column:entity_type;not null;index"`
	EntityID   *uuid.UUID        `gorm:"column:entity_id;type:uuid;index"`
	Metadata   types.JSONMap     `gorm:"column:metadata;type:jsonb;serializer:json"`
	RequestID  *string           `gorm:"column:request_id"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}
