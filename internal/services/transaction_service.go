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
	"hearth/internal/pagination"
)

// transactionService implements the transaction engine: multi-line
// transactions whose lines are converted into base-currency postings and
// applied to the account ledger as one atomic unit.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer) TransactionServicer {
	return &transactionService{
		db:             db,
		accountService: accountService,
	}
}

// checkedLine is a validated line together with its resolved posting amount.
type checkedLine struct {
	input  LineInput
	signed decimal.Decimal
}

// validateLines checks every line against the household's accounts and
// categories and resolves each line's signed base-currency amount. It
// returns a field-level error for the first invalid line and performs no
// writes. allowSystem permits lines against system categories; only the
// internal adjust-balance path sets it.
func (s *transactionService) validateLines(tx *gorm.DB, householdID, baseCurrency string, lines []LineInput, allowSystem bool) ([]checkedLine, error) {
	if len(lines) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a transaction requires at least one line")
	}

	checked := make([]checkedLine, 0, len(lines))
	for i, line := range lines {
		if line.Amount.Sign() <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
				fmt.Sprintf("lines[%d].amount must be greater than zero", i))
		}

		var account models.Account
		err := tx.Where("id = ? AND household_id = ? AND is_active = ?", line.AccountID, householdID, true).
			First(&account).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrAccountNotFound,
					fmt.Sprintf("lines[%d].account_id does not reference an active account", i))
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var category models.Category
		err = tx.Where("id = ? AND household_id = ?", line.CategoryID, householdID).
			First(&category).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound,
					fmt.Sprintf("lines[%d].category_id does not reference a category", i))
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		switch category.Type {
		case models.CategoryTypeSystem:
			if !allowSystem {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
					fmt.Sprintf("lines[%d].category_id references a system category", i))
			}
		case models.CategoryTypeIncome:
			if line.Direction != models.LineDirectionIncome {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
					fmt.Sprintf("lines[%d].direction must be income for an income category", i))
			}
		case models.CategoryTypeExpense:
			if line.Direction != models.LineDirectionExpense {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
					fmt.Sprintf("lines[%d].direction must be expense for an expense category", i))
			}
		}

		// Same-currency lines always post one-to-one; foreign-currency
		// lines need the caller-resolved rate.
		if line.Currency == baseCurrency {
			line.Rate = decimal.NewFromInt(1)
			line.RateMode = money.RateModeNormal
		} else if line.Rate.Sign() <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidRate,
				fmt.Sprintf("lines[%d] requires a positive exchange rate for %s", i, line.Currency))
		}

		base, err := money.Convert(line.Amount, line.Rate, line.RateMode)
		if err != nil {
			return nil, err
		}
		if line.Direction == models.LineDirectionExpense {
			base = base.Neg()
		}

		checked = append(checked, checkedLine{input: line, signed: base})
	}

	return checked, nil
}

// applyLines persists the line rows for a transaction and posts each
// line's signed base amount to its account.
func (s *transactionService) applyLines(tx *gorm.DB, householdID, transactionID string, checked []checkedLine) ([]models.TransactionLine, error) {
	lines := make([]models.TransactionLine, 0, len(checked))
	for _, cl := range checked {
		line := models.TransactionLine{
			TransactionID: transactionID,
			AccountID:     cl.input.AccountID,
			CategoryID:    cl.input.CategoryID,
			Direction:     cl.input.Direction,
			Amount:        cl.input.Amount,
			Currency:      cl.input.Currency,
			Rate:          cl.input.Rate,
			RateMode:      cl.input.RateMode,
			Notes:         cl.input.Notes,
		}
		if err := tx.Create(&line).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.accountService.Post(tx, householdID, cl.input.AccountID, cl.signed); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// reverseLines undoes the ledger effect of every stored line of a transaction.
func (s *transactionService) reverseLines(tx *gorm.DB, householdID string, lines []models.TransactionLine) error {
	for i := range lines {
		signed, err := lines[i].SignedBaseAmount()
		if err != nil {
			return err
		}
		if err := s.accountService.Reverse(tx, householdID, lines[i].AccountID, signed); err != nil {
			return err
		}
	}
	return nil
}

func (s *transactionService) baseCurrency(tx *gorm.DB, householdID string) (string, error) {
	var household models.Household
	if err := tx.Where("id = ?", householdID).First(&household).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrHouseholdNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return household.BaseCurrency, nil
}

// Create validates every line and then, atomically, persists the
// transaction and posts each line to the ledger.
func (s *transactionService) Create(householdID, userID string, date time.Time, title, description string, lines []LineInput) (*models.Transaction, error) {
	return s.create(householdID, userID, date, title, description, lines, false)
}

func (s *transactionService) create(householdID, userID string, date time.Time, title, description string, lines []LineInput, allowSystem bool) (*models.Transaction, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		base, err := s.baseCurrency(tx, householdID)
		if err != nil {
			return err
		}

		checked, err := s.validateLines(tx, householdID, base, lines, allowSystem)
		if err != nil {
			return err
		}

		transaction := &models.Transaction{
			HouseholdID: householdID,
			CreatedByID: userID,
			Date:        date,
			Title:       title,
			Description: description,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		created, err := s.applyLines(tx, householdID, transaction.ID, checked)
		if err != nil {
			return err
		}
		transaction.Lines = created
		result = transaction
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return result, nil
}

// Update replaces a transaction's line set atomically: every original
// line's posting is reversed, the new set validated, and applied exactly
// as Create does. Avoids diffing line-by-line and guarantees the ledger
// reflects only the current lines.
func (s *transactionService) Update(householdID, transactionID string, date time.Time, title, description string, lines []LineInput) (*models.Transaction, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Preload("Lines").
			Where("id = ? AND household_id = ?", transactionID, householdID).
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		base, err := s.baseCurrency(tx, householdID)
		if err != nil {
			return err
		}

		// Validate the replacement set before touching the ledger so an
		// invalid update leaves everything untouched.
		checked, err := s.validateLines(tx, householdID, base, lines, false)
		if err != nil {
			return err
		}

		if err := s.reverseLines(tx, householdID, existing.Lines); err != nil {
			return err
		}
		if err := tx.Where("transaction_id = ?", existing.ID).Delete(&models.TransactionLine{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		updates := map[string]interface{}{
			"date":        date,
			"title":       title,
			"description": description,
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		created, err := s.applyLines(tx, householdID, existing.ID, checked)
		if err != nil {
			return err
		}
		existing.Lines = created
		result = &existing
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return result, nil
}

// Delete reverses every line's ledger posting and removes the transaction.
func (s *transactionService) Delete(householdID, transactionID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Preload("Lines").
			Where("id = ? AND household_id = ?", transactionID, householdID).
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := s.reverseLines(tx, householdID, existing.Lines); err != nil {
			return err
		}
		if err := tx.Where("transaction_id = ?", existing.ID).Delete(&models.TransactionLine{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&existing).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	return mapConflict(err)
}

// GetTransactionByID retrieves a transaction with its lines.
func (s *transactionService) GetTransactionByID(householdID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := s.db.Preload("Lines").
		Where("id = ? AND household_id = ?", transactionID, householdID).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// GetHouseholdTransactions retrieves a paginated, filtered transaction list.
func (s *transactionService) GetHouseholdTransactions(householdID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("transactions.household_id = ?", householdID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Distinct("transactions.id").Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Distinct("transactions.*").
		Preload("Lines").
		Scopes(pagination.Paginate(page)).
		Order("transactions.date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("transactions.date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("transactions.date <= ?", *f.ToDate)
	}
	if f.AccountID != nil || f.CategoryID != nil || f.Direction != nil {
		q = q.Joins("JOIN transaction_lines ON transaction_lines.transaction_id = transactions.id AND transaction_lines.deleted_at IS NULL")
		if f.AccountID != nil {
			q = q.Where("transaction_lines.account_id = ?", *f.AccountID)
		}
		if f.CategoryID != nil {
			q = q.Where("transaction_lines.category_id = ?", *f.CategoryID)
		}
		if f.Direction != nil {
			q = q.Where("transaction_lines.direction = ?", *f.Direction)
		}
	}
	return q
}

// AdjustBalance reconciles an account's stored balance to the target by
// creating a one-line transaction against the household's system
// balance-adjustment category. It introduces no new ledger invariant.
func (s *transactionService) AdjustBalance(householdID, userID, accountID string, targetBalance decimal.Decimal) (*models.Transaction, error) {
	account, err := s.accountService.GetAccountByID(householdID, accountID)
	if err != nil {
		return nil, err
	}

	delta := targetBalance.Sub(account.Balance)
	if delta.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account balance already matches the target")
	}

	var category models.Category
	err = s.db.Where("household_id = ? AND type = ? AND name = ?",
		householdID, models.CategoryTypeSystem, models.SystemCategoryBalanceAdjustment).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	direction := models.LineDirectionIncome
	if delta.Sign() < 0 {
		direction = models.LineDirectionExpense
	}

	line := LineInput{
		AccountID:  accountID,
		CategoryID: category.ID,
		Direction:  direction,
		Amount:     delta.Abs(),
		Currency:   account.Currency,
		Rate:       decimal.NewFromInt(1),
		RateMode:   money.RateModeNormal,
	}

	return s.create(householdID, userID, time.Now(), "Balance adjustment", "", []LineInput{line}, true)
}
