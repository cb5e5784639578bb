package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/money"
)

// allocationService implements the envelope allocation engine: per
// category, per month budget targets and funded balances, moved and funded
// under non-negative-balance invariants. Envelope operations never touch
// account balances; they only shift notional funds between envelopes and
// the month's unallocated pool.
type allocationService struct {
	db *gorm.DB
}

// NewAllocationService creates a new AllocationServicer.
func NewAllocationService(db *gorm.DB) AllocationServicer {
	return &allocationService{db: db}
}

// Upsert creates or updates the allocated target for a category/month.
// The funded balance is never touched here.
func (s *allocationService) Upsert(householdID, categoryID string, month time.Time, allocated decimal.Decimal, notes string) (*models.Allocation, error) {
	if allocated.Sign() < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "allocated amount cannot be negative")
	}
	month = money.MonthStart(month)

	var category models.Category
	if err := s.db.Where("id = ? AND household_id = ?", categoryID, householdID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.Type == models.CategoryTypeSystem {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "system categories cannot be budgeted")
	}

	var allocation models.Allocation
	err := s.db.Where("household_id = ? AND category_id = ? AND month = ?", householdID, categoryID, month).
		First(&allocation).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"allocated": allocated, "notes": notes}
		if err := s.db.Model(&allocation).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		allocation.Allocated = allocated
		allocation.Notes = notes
	case errors.Is(err, gorm.ErrRecordNotFound):
		allocation = models.Allocation{
			HouseholdID: householdID,
			CategoryID:  categoryID,
			Month:       month,
			Allocated:   allocated,
			Available:   decimal.Zero,
			Notes:       notes,
		}
		if err := s.db.Create(&allocation).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &allocation, nil
}

// lockAllocation loads an allocation row under a FOR UPDATE lock.
func (s *allocationService) lockAllocation(tx *gorm.DB, householdID, allocationID string) (*models.Allocation, error) {
	var allocation models.Allocation
	err := lockForUpdate(tx).
		Where("id = ? AND household_id = ?", allocationID, householdID).
		First(&allocation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAllocationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &allocation, nil
}

// Fund increases each entry's funded balance. The whole batch is checked
// against the month's unallocated pool first; if it does not fit, nothing
// is applied. The month's allocation rows are locked so concurrent Fund
// batches serialize against a pool that reflects all committed funding.
func (s *allocationService) Fund(householdID string, month time.Time, entries []FundEntry) ([]models.Allocation, error) {
	if len(entries) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one fund entry is required")
	}
	month = money.MonthStart(month)

	total := decimal.Zero
	for i, entry := range entries {
		if entry.Amount.Sign() <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("entries[%d].amount must be greater than zero", i))
		}
		total = total.Add(entry.Amount)
	}

	var updated []models.Allocation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var monthAllocations []models.Allocation
		if err := lockForUpdate(tx).
			Where("household_id = ? AND month = ?", householdID, month).
			Find(&monthAllocations).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		income, err := s.incomeTotal(tx, householdID, month)
		if err != nil {
			return err
		}
		funded := decimal.Zero
		for i := range monthAllocations {
			funded = funded.Add(monthAllocations[i].Available)
		}
		pool := income.Sub(funded)

		if total.GreaterThan(pool) {
			return apperrors.WithMessage(apperrors.ErrInsufficientUnallocatedFunds,
				fmt.Sprintf("only %s unallocated for %s", pool.StringFixed(money.Precision), month.Format("2006-01")))
		}

		updated = make([]models.Allocation, 0, len(entries))
		for _, entry := range entries {
			allocation, err := s.lockAllocation(tx, householdID, entry.AllocationID)
			if err != nil {
				return err
			}
			newAvailable := allocation.Available.Add(entry.Amount)
			if err := tx.Model(allocation).Update("available", newAvailable).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			allocation.Available = newAvailable
			updated = append(updated, *allocation)
		}
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return updated, nil
}

// Move transfers un-spent funded balance from one envelope to another.
// Both rows are locked in id order for the duration of the balance check
// and the two-sided update, so a concurrent spend or Move cannot
// invalidate the check between read and write.
func (s *allocationService) Move(householdID, fromAllocationID, toAllocationID string, amount decimal.Decimal) error {
	if fromAllocationID == toAllocationID {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot move funds within the same envelope")
	}
	if amount.Sign() <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		firstID, secondID := fromAllocationID, toAllocationID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}

		first, err := s.lockAllocation(tx, householdID, firstID)
		if err != nil {
			return err
		}
		second, err := s.lockAllocation(tx, householdID, secondID)
		if err != nil {
			return err
		}

		from, to := first, second
		if from.ID != fromAllocationID {
			from, to = second, first
		}

		// The balance check always uses a fresh spend recompute, never a
		// cached figure.
		spent, err := s.spentTotal(tx, householdID, from.CategoryID, from.Month)
		if err != nil {
			return err
		}
		spendable := from.Available.Sub(spent)
		if amount.GreaterThan(spendable) {
			return apperrors.WithMessage(apperrors.ErrInsufficientFunds,
				fmt.Sprintf("only %s available to move", spendable.StringFixed(money.Precision)))
		}

		if err := tx.Model(from).Update("available", from.Available.Sub(amount)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(to).Update("available", to.Available.Add(amount)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	return mapConflict(err)
}

// RecomputeSpent returns the live spend for a category and month: the sum
// of per-line rounded base-currency amounts of all matching transaction
// lines. It is derived on demand and never stored.
func (s *allocationService) RecomputeSpent(householdID, categoryID string, month time.Time) (decimal.Decimal, error) {
	return s.spentTotal(s.db, householdID, categoryID, money.MonthStart(month))
}

// spentTotal sums the base-currency amounts of all lines for a category
// whose parent transaction falls within the month. Summed in Go so each
// line is rounded exactly as it was when posted to the ledger.
func (s *allocationService) spentTotal(tx *gorm.DB, householdID, categoryID string, month time.Time) (decimal.Decimal, error) {
	start, end := money.MonthWindow(month)

	var lines []models.TransactionLine
	err := tx.
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id AND transactions.deleted_at IS NULL").
		Where("transactions.household_id = ?", householdID).
		Where("transactions.date >= ? AND transactions.date < ?", start, end).
		Where("transaction_lines.category_id = ?", categoryID).
		Find(&lines).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for i := range lines {
		base, err := lines[i].BaseAmount()
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(base)
	}
	return total, nil
}

// incomeTotal sums the base-currency amounts of the month's income lines.
// Only lines against income categories count; balance adjustments and
// other system postings do not grow the pool.
func (s *allocationService) incomeTotal(tx *gorm.DB, householdID string, month time.Time) (decimal.Decimal, error) {
	start, end := money.MonthWindow(month)

	var lines []models.TransactionLine
	err := tx.
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id AND transactions.deleted_at IS NULL").
		Joins("JOIN categories ON categories.id = transaction_lines.category_id").
		Where("transactions.household_id = ?", householdID).
		Where("transactions.date >= ? AND transactions.date < ?", start, end).
		Where("transaction_lines.direction = ?", models.LineDirectionIncome).
		Where("categories.type = ?", models.CategoryTypeIncome).
		Find(&lines).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for i := range lines {
		base, err := lines[i].BaseAmount()
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(base)
	}
	return total, nil
}

// UnallocatedFunds returns the month's income not yet funded into any envelope.
func (s *allocationService) UnallocatedFunds(householdID string, month time.Time) (decimal.Decimal, error) {
	month = money.MonthStart(month)

	income, err := s.incomeTotal(s.db, householdID, month)
	if err != nil {
		return decimal.Zero, err
	}

	var allocations []models.Allocation
	if err := s.db.Where("household_id = ? AND month = ?", householdID, month).Find(&allocations).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	funded := decimal.Zero
	for i := range allocations {
		funded = funded.Add(allocations[i].Available)
	}
	return income.Sub(funded), nil
}

// List returns the month's allocations with derived spent, balance, and
// to-fund figures.
func (s *allocationService) List(householdID string, month time.Time) ([]AllocationView, error) {
	month = money.MonthStart(month)

	var allocations []models.Allocation
	err := s.db.Preload("Category").
		Where("household_id = ? AND month = ?", householdID, month).
		Order("created_at").
		Find(&allocations).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]AllocationView, 0, len(allocations))
	for i := range allocations {
		spent, err := s.spentTotal(s.db, householdID, allocations[i].CategoryID, month)
		if err != nil {
			return nil, err
		}
		views = append(views, AllocationView{
			Allocation: allocations[i],
			Spent:      spent,
			Balance:    allocations[i].Available.Sub(spent),
			ToFund:     allocations[i].Allocated.Sub(allocations[i].Available),
		})
	}
	return views, nil
}

// Delete removes an allocation. Already-posted transactions are not
// reversed; the category's spend simply becomes unbudgeted.
func (s *allocationService) Delete(householdID, allocationID string) error {
	var allocation models.Allocation
	if err := s.db.Where("id = ? AND household_id = ?", allocationID, householdID).First(&allocation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAllocationNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Delete(&allocation).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
