package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"hearth/internal/models"
	"hearth/internal/money"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestHousehold creates a household with USD as base currency.
func CreateTestHousehold(t *testing.T, db *gorm.DB) *models.Household {
	t.Helper()

	n := nextID()
	household := &models.Household{
		Name:         fmt.Sprintf("Test Household %d", n),
		BaseCurrency: "USD",
		InviteCode:   fmt.Sprintf("invite%d", n),
	}
	if err := db.Create(household).Error; err != nil {
		t.Fatalf("failed to create test household: %v", err)
	}
	return household
}

// CreateTestUser creates a household member with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB, householdID string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		HouseholdID: householdID,
		Email:       fmt.Sprintf("user%d@test.com", nextID()),
		Password:    string(hash),
		Role:        models.UserRoleOwner,
		IsActive:    true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a bank account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, householdID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, householdID, decimal.Zero)
}

// CreateTestAccountWithBalance creates a bank account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, householdID string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		HouseholdID: householdID,
		Name:        fmt.Sprintf("Test Account %d", nextID()),
		Type:        models.AccountTypeBank,
		Currency:    "USD",
		Balance:     balance,
		IsActive:    true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, householdID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		HouseholdID: householdID,
		Name:        fmt.Sprintf("Test Category %d", nextID()),
		Type:        categoryType,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBalanceAdjustmentCategory creates the reserved system category.
func CreateTestBalanceAdjustmentCategory(t *testing.T, db *gorm.DB, householdID string) *models.Category {
	t.Helper()

	category := &models.Category{
		HouseholdID: householdID,
		Name:        models.SystemCategoryBalanceAdjustment,
		Type:        models.CategoryTypeSystem,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test system category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction with a single same-currency
// line. The line is persisted but not posted to the account balance.
func CreateTestTransaction(t *testing.T, db *gorm.DB, householdID, userID, accountID, categoryID string, direction models.LineDirection, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		HouseholdID: householdID,
		CreatedByID: userID,
		Date:        date,
		Title:       fmt.Sprintf("Test Transaction %d", nextID()),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}

	line := &models.TransactionLine{
		TransactionID: tx.ID,
		AccountID:     accountID,
		CategoryID:    categoryID,
		Direction:     direction,
		Amount:        amount,
		Currency:      "USD",
		Rate:          decimal.NewFromInt(1),
		RateMode:      money.RateModeNormal,
	}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("failed to create test transaction line: %v", err)
	}
	tx.Lines = []models.TransactionLine{*line}

	return tx
}

// CreateTestAllocation creates an allocation for the category and month.
func CreateTestAllocation(t *testing.T, db *gorm.DB, householdID, categoryID string, month time.Time, allocated, available decimal.Decimal) *models.Allocation {
	t.Helper()

	allocation := &models.Allocation{
		HouseholdID: householdID,
		CategoryID:  categoryID,
		Month:       money.MonthStart(month),
		Allocated:   allocated,
		Available:   available,
	}
	if err := db.Create(allocation).Error; err != nil {
		t.Fatalf("failed to create test allocation: %v", err)
	}
	return allocation
}
