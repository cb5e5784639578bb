package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/pagination"
)

// accountService handles account-related business logic and owns the
// ledger posting primitives.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new account for a household. A non-zero initial
// balance is recorded directly; reconciliations afterwards go through the
// adjust-balance flow so they leave a transaction trail.
func (s *accountService) CreateAccount(
	householdID, name string,
	accountType models.AccountType,
	description string,
	initialBalance decimal.Decimal,
) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	var household models.Household
	if err := s.db.Where("id = ?", householdID).First(&household).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHouseholdNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account := &models.Account{
		HouseholdID: householdID,
		Name:        name,
		Type:        accountType,
		Description: description,
		Currency:    household.BaseCurrency,
		Balance:     initialBalance,
		IsActive:    true,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// GetHouseholdAccounts retrieves a paginated list of accounts for a household.
func (s *accountService) GetHouseholdAccounts(householdID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Account{}).Where("household_id = ? AND is_active = ?", householdID, true)
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific household
func (s *accountService) GetAccountByID(householdID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND household_id = ?", accountID, householdID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an existing account's mutable fields.
func (s *accountService) UpdateAccount(householdID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(householdID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// DeleteAccount soft-deletes an account. Postings that referenced it stay
// in place; the account simply stops accepting new ones.
func (s *accountService) DeleteAccount(householdID, accountID string) error {
	account, err := s.GetAccountByID(householdID, accountID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(account).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Post adds a signed base-currency amount to an account's balance. The row
// is locked for the rest of the enclosing transaction so concurrent
// postings to the same account serialize instead of losing updates.
func (s *accountService) Post(tx *gorm.DB, householdID, accountID string, signedBaseAmount decimal.Decimal) error {
	var account models.Account
	err := lockForUpdate(tx).
		Where("id = ? AND household_id = ? AND is_active = ?", accountID, householdID, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	newBalance := account.Balance.Add(signedBaseAmount)
	if err := tx.Model(&account).Update("balance", newBalance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Reverse applies the negated amount of a prior posting.
func (s *accountService) Reverse(tx *gorm.DB, householdID, accountID string, signedBaseAmount decimal.Decimal) error {
	return s.Post(tx, householdID, accountID, signedBaseAmount.Neg())
}
