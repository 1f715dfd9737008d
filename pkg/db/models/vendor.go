package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva-backend/pkg/types"
)

// Vendor represents a rental business listing products on the platform.
type Vendor struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Slug         string         `gorm:"column:slug;not null;uniqueIndex"`
	ContactEmail string         `gorm:"column:contact_email;not null"`
	Phone        *string        `gorm:"column:phone"`
	Address      *types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
