package models

// Household groups the users that share one ledger. All accounts,
// categories, transactions, and allocations are scoped to a household,
// and all ledger amounts are expressed in its base currency.
type Household struct {
	Base
	Name         string `gorm:"not null" json:"name"`
	BaseCurrency string `gorm:"not null;default:'USD'" json:"base_currency"`
	InviteCode   string `gorm:"uniqueIndex;not null" json:"-"`

	// Relationships
	Users      []User     `gorm:"foreignKey:HouseholdID" json:"users,omitempty"`
	Accounts   []Account  `gorm:"foreignKey:HouseholdID" json:"accounts,omitempty"`
	Categories []Category `gorm:"foreignKey:HouseholdID" json:"categories,omitempty"`
}
