package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"hearth/internal/models"
	"hearth/internal/money"
	"hearth/internal/pagination"
)

// UserServicer defines the contract for user and household business logic.
type UserServicer interface {
	// Register creates a user. With a household name it creates a new
	// household (and its system categories); with an invite code it joins
	// an existing one.
	Register(email, password, firstName, lastName, householdName, inviteCode string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AccountUpdateFields holds the optional fields for an account update.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// AccountServicer defines the contract for account business logic,
// including the ledger posting primitives used by the transaction engine.
type AccountServicer interface {
	CreateAccount(householdID, name string, accountType models.AccountType, description string, initialBalance decimal.Decimal) (*models.Account, error)
	GetHouseholdAccounts(householdID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(householdID, accountID string) (*models.Account, error)
	UpdateAccount(householdID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeleteAccount(householdID, accountID string) error

	// Post applies a signed base-currency amount to an account's balance.
	// It must run inside the caller's database transaction and locks the
	// account row for the duration.
	Post(tx *gorm.DB, householdID, accountID string, signedBaseAmount decimal.Decimal) error
	// Reverse applies the negated amount; used when a line is edited or deleted.
	Reverse(tx *gorm.DB, householdID, accountID string, signedBaseAmount decimal.Decimal) error
}

// CategoryServicer defines the contract for category business logic.
type CategoryServicer interface {
	CreateCategory(householdID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetHouseholdCategories(householdID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(householdID, categoryID string) (*models.Category, error)
	UpdateCategory(householdID, categoryID string, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(householdID, categoryID string) error
	// SeedSystemCategories creates the reserved categories for a new household.
	SeedSystemCategories(tx *gorm.DB, householdID string) error
}

// LineInput carries one transaction line as submitted by the caller.
// The exchange rate is resolved by the caller before the engine is
// invoked; the engine only applies it.
type LineInput struct {
	AccountID  string
	CategoryID string
	Direction  models.LineDirection
	Amount     decimal.Decimal
	Currency   string
	Rate       decimal.Decimal
	RateMode   money.RateMode
	Notes      string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	AccountID  *string
	CategoryID *string
	Direction  *models.LineDirection
}

// TransactionServicer defines the contract for the transaction engine.
// Every operation is all-or-nothing: a failed validation or posting leaves
// no persisted or ledger-visible effect.
type TransactionServicer interface {
	Create(householdID, userID string, date time.Time, title, description string, lines []LineInput) (*models.Transaction, error)
	// Update replaces the whole line set: it reverses every original
	// line's posting, then validates and applies the new set as Create does.
	Update(householdID, transactionID string, date time.Time, title, description string, lines []LineInput) (*models.Transaction, error)
	Delete(householdID, transactionID string) error
	GetTransactionByID(householdID, transactionID string) (*models.Transaction, error)
	GetHouseholdTransactions(householdID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	// AdjustBalance reconciles an account's stored balance to the target by
	// creating a single-line transaction against the system
	// balance-adjustment category.
	AdjustBalance(householdID, userID, accountID string, targetBalance decimal.Decimal) (*models.Transaction, error)
}

// FundEntry is one target of a Fund batch.
type FundEntry struct {
	AllocationID string
	Amount       decimal.Decimal
}

// AllocationView is an allocation row with its derived figures.
type AllocationView struct {
	models.Allocation
	Spent   decimal.Decimal `json:"spent"`
	Balance decimal.Decimal `json:"balance"`
	ToFund  decimal.Decimal `json:"to_fund"`
}

// AllocationServicer defines the contract for the envelope allocation engine.
type AllocationServicer interface {
	Upsert(householdID, categoryID string, month time.Time, allocated decimal.Decimal, notes string) (*models.Allocation, error)
	// Fund increases each entry's available balance, after checking the
	// whole batch against the month's unallocated pool. All-or-nothing.
	Fund(householdID string, month time.Time, entries []FundEntry) ([]models.Allocation, error)
	// Move transfers un-spent funded balance between two envelopes.
	Move(householdID, fromAllocationID, toAllocationID string, amount decimal.Decimal) error
	// RecomputeSpent returns the live spend for a category and month. It is
	// always computed fresh from transaction lines, never cached.
	RecomputeSpent(householdID, categoryID string, month time.Time) (decimal.Decimal, error)
	// UnallocatedFunds returns the month's income not yet assigned to any envelope.
	UnallocatedFunds(householdID string, month time.Time) (decimal.Decimal, error)
	List(householdID string, month time.Time) ([]AllocationView, error)
	Delete(householdID, allocationID string) error
}

// CategorySpend is one row of a monthly report.
type CategorySpend struct {
	CategoryID   string              `json:"category_id"`
	CategoryName string              `json:"category_name"`
	CategoryType models.CategoryType `json:"category_type"`
	Total        decimal.Decimal     `json:"total"`
}

// MonthlySummary aggregates a household's month in base currency.
type MonthlySummary struct {
	Month       time.Time       `json:"month"`
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Net         decimal.Decimal `json:"net"`
	Unallocated decimal.Decimal `json:"unallocated"`
	Categories  []CategorySpend `json:"categories"`
}

// ReportServicer defines the contract for read-side reports.
type ReportServicer interface {
	MonthlySummary(householdID string, month time.Time) (*MonthlySummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
