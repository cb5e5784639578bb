package models

import "github.com/shopspring/decimal"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeBank   AccountType = "bank"
	AccountTypeCash   AccountType = "cash"
	AccountTypeCredit AccountType = "credit"
	AccountTypeWallet AccountType = "wallet"
)

// Account represents a financial account in the system. The balance is a
// signed amount in the household's base currency and is only ever mutated
// by postings from the transaction engine. Accounts referenced by
// transaction lines are soft-deleted, never removed.
type Account struct {
	Base
	HouseholdID string          `gorm:"type:uuid;not null;index" json:"household_id"`
	Name        string          `gorm:"not null" json:"name"`
	Type        AccountType     `gorm:"not null" json:"type"`
	Description string          `json:"description"`
	Currency    string          `gorm:"not null;default:'USD'" json:"currency"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`

	// Relationships
	Lines []TransactionLine `gorm:"foreignKey:AccountID" json:"-"`
}
