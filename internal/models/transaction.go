package models

import (
	"time"

	"github.com/shopspring/decimal"

	"hearth/internal/money"
)

// LineDirection represents whether a transaction line adds to or removes
// from an account's balance.
type LineDirection string

const (
	LineDirectionIncome  LineDirection = "income"
	LineDirectionExpense LineDirection = "expense"
)

// Transaction represents a financial transaction. A transaction and its
// lines are always created, replaced, and deleted as one atomic unit.
type Transaction struct {
	Base
	HouseholdID string    `gorm:"type:uuid;not null;index" json:"household_id"`
	CreatedByID string    `gorm:"type:uuid;not null" json:"created_by_id"`
	Date        time.Time `gorm:"not null;index" json:"date"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`

	// Relationships
	Lines []TransactionLine `gorm:"foreignKey:TransactionID" json:"lines"`
}

// TransactionLine is a single posting within a transaction. The amount is
// positive and in the line's own currency; the base-currency amount is
// derived from the exchange rate and never stored.
type TransactionLine struct {
	Base
	TransactionID string          `gorm:"type:uuid;not null;index" json:"transaction_id"`
	AccountID     string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID    string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Direction     LineDirection   `gorm:"not null" json:"direction"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency      string          `gorm:"not null" json:"currency"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,8);not null;default:1" json:"exchange_rate"`
	RateMode      money.RateMode  `gorm:"not null;default:'normal'" json:"rate_mode"`
	Notes         string          `json:"notes,omitempty"`

	// Relationships
	Account  Account  `gorm:"foreignKey:AccountID" json:"-"`
	Category Category `gorm:"foreignKey:CategoryID" json:"-"`
}

// BaseAmount returns the line's amount converted into the household base
// currency, rounded to minor-unit precision.
func (l *TransactionLine) BaseAmount() (decimal.Decimal, error) {
	return money.Convert(l.Amount, l.Rate, l.RateMode)
}

// SignedBaseAmount returns the base-currency amount signed by direction:
// positive for income lines, negative for expense lines.
func (l *TransactionLine) SignedBaseAmount() (decimal.Decimal, error) {
	base, err := l.BaseAmount()
	if err != nil {
		return decimal.Zero, err
	}
	if l.Direction == LineDirectionExpense {
		return base.Neg(), nil
	}
	return base, nil
}
