package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeSystem marks categories created by the application itself,
	// such as the balance-adjustment category. End users cannot edit or
	// delete them, and envelopes cannot target them.
	CategoryTypeSystem CategoryType = "system"
)

// SystemCategoryBalanceAdjustment is the name of the per-household system
// category used by the adjust-balance endpoint.
const SystemCategoryBalanceAdjustment = "Balance Adjustment"

// Category represents a transaction category. The type is immutable after
// creation.
type Category struct {
	Base
	HouseholdID string       `gorm:"type:uuid;not null;index" json:"household_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`

	// Relationships
	Lines       []TransactionLine `gorm:"foreignKey:CategoryID" json:"-"`
	Allocations []Allocation      `gorm:"foreignKey:CategoryID" json:"-"`
}
