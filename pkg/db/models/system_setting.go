package models

import (
	"time"

	"github.com/google/uuid"
)

// SystemSetting is an admin-tunable key/value override layered over the
// environment defaults.
type SystemSetting struct {
	Key       string     `gorm:"column:key;primaryKey"`
	Value     string     `gorm:"column:value;not null"`
	UpdatedBy *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
