package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are assigned client-side so inserts behave the same on
// Postgres and on the sqlite databases the test suites run against.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *User) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *Vendor) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *ProductVariant) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Quotation) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *QuotationItem) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *OrderLineItem) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *RentalRecord) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (m *AuditLog) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *OutboxEvent) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
