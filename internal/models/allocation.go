package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is the envelope for one category in one calendar month.
// Allocated is the planned target, Available the funded balance. Both are
// in the household base currency and never negative. Spent, balance, and
// to-fund are derived at read time and never persisted.
type Allocation struct {
	Base
	HouseholdID string          `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_month" json:"household_id"`
	CategoryID  string          `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_month" json:"category_id"`
	Month       time.Time       `gorm:"not null;uniqueIndex:idx_allocation_month" json:"month"`
	Allocated   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"allocated"`
	Available   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"available"`
	Notes       string          `json:"notes,omitempty"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
