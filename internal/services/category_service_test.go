package services

import (
	"testing"
	"time"

	"hearth/internal/models"
	"hearth/internal/pagination"
	"hearth/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	t.Run("creates_expense_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)

		category, err := svc.CreateCategory(household.ID, "Groceries", models.CategoryTypeExpense, "", "cart", "#33cc66")
		testutil.AssertNoError(t, err)
		if category.Type != models.CategoryTypeExpense {
			t.Errorf("expected expense, got %s", category.Type)
		}
	})

	t.Run("duplicate_name_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)

		_, err := svc.CreateCategory(household.ID, "Groceries", models.CategoryTypeExpense, "", "", "")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateCategory(household.ID, "Groceries", models.CategoryTypeIncome, "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("same_name_in_other_household_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		other := testutil.CreateTestHousehold(t, db)

		_, err := svc.CreateCategory(household.ID, "Groceries", models.CategoryTypeExpense, "", "", "")
		testutil.AssertNoError(t, err)
		_, err = svc.CreateCategory(other.ID, "Groceries", models.CategoryTypeExpense, "", "", "")
		testutil.AssertNoError(t, err)
	})

	t.Run("system_type_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)

		_, err := svc.CreateCategory(household.ID, "Sneaky", models.CategoryTypeSystem, "", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetHouseholdCategories(t *testing.T) {
	t.Run("filters_by_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeExpense)
		testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeExpense)
		testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeIncome)

		income := models.CategoryTypeIncome
		result, err := svc.GetHouseholdCategories(household.ID, &income, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 income category, got %d", result.TotalItems)
		}

		result, err = svc.GetHouseholdCategories(household.ID, nil, pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Errorf("expected 3 categories, got %d", result.TotalItems)
		}
	})
}

func TestUpdateCategory(t *testing.T) {
	t.Run("system_category_protected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		system := testutil.CreateTestBalanceAdjustmentCategory(t, db, household.ID)

		_, err := svc.UpdateCategory(household.ID, system.ID, "Renamed", "", "", "")
		testutil.AssertAppError(t, err, "SYSTEM_CATEGORY")
	})

	t.Run("updates_display_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		category := testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeExpense)

		updated, err := svc.UpdateCategory(household.ID, category.ID, "Food", "weekly shop", "cart", "#ff0000")
		testutil.AssertNoError(t, err)
		if updated.Name != "Food" || updated.Color != "#ff0000" {
			t.Errorf("unexpected update result: %+v", updated)
		}
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("deletes_unused_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		category := testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(household.ID, category.ID))

		_, err := svc.GetCategoryByID(household.ID, category.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("in_use_by_transactions_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		user := testutil.CreateTestUser(t, db, household.ID)
		account := testutil.CreateTestAccount(t, db, household.ID)
		category := testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, household.ID, user.ID, account.ID, category.ID,
			models.LineDirectionExpense, dec("10.00"), time.Now())

		err := svc.DeleteCategory(household.ID, category.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})

	t.Run("in_use_by_allocations_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		category := testutil.CreateTestCategory(t, db, household.ID, models.CategoryTypeExpense)
		testutil.CreateTestAllocation(t, db, household.ID, category.ID, testMonth, dec("100.00"), dec("0"))

		err := svc.DeleteCategory(household.ID, category.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})

	t.Run("system_category_protected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		household := testutil.CreateTestHousehold(t, db)
		system := testutil.CreateTestBalanceAdjustmentCategory(t, db, household.ID)

		err := svc.DeleteCategory(household.ID, system.ID)
		testutil.AssertAppError(t, err, "SYSTEM_CATEGORY")
	})
}

func TestSeedSystemCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	household := testutil.CreateTestHousehold(t, db)

	testutil.AssertNoError(t, svc.SeedSystemCategories(db, household.ID))

	var category models.Category
	err := db.Where("household_id = ? AND type = ? AND name = ?",
		household.ID, models.CategoryTypeSystem, models.SystemCategoryBalanceAdjustment).
		First(&category).Error
	testutil.AssertNoError(t, err)
}
