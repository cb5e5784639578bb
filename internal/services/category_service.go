package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/pagination"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category. System categories cannot be
// created through this path; they are seeded per household.
func (s *categoryService) CreateCategory(
	householdID, name string,
	categoryType models.CategoryType,
	description, icon, color string,
) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or expense")
	}

	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("household_id = ? AND name = ?", householdID, name).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
	}

	category := &models.Category{
		HouseholdID: householdID,
		Name:        name,
		Type:        categoryType,
		Description: description,
		Icon:        icon,
		Color:       color,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetHouseholdCategories retrieves a paginated list of categories, optionally filtered by type.
func (s *categoryService) GetHouseholdCategories(householdID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.Model(&models.Category{}).Where("household_id = ?", householdID)
	if categoryType != nil {
		base = base.Where("type = ?", *categoryType)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Scopes(pagination.Paginate(page)).Order("name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific household
func (s *categoryService) GetCategoryByID(householdID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND household_id = ?", categoryID, householdID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates a category's display fields. The type is
// immutable, and system categories reject all edits.
func (s *categoryService) UpdateCategory(householdID, categoryID string, name, description, icon, color string) (*models.Category, error) {
	category, err := s.GetCategoryByID(householdID, categoryID)
	if err != nil {
		return nil, err
	}

	if category.Type == models.CategoryTypeSystem {
		return nil, apperrors.ErrSystemCategory
	}

	updates := make(map[string]interface{})
	if name != "" {
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", category.ID).First(category).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return category, nil
}

// DeleteCategory soft-deletes a category if nothing references it.
func (s *categoryService) DeleteCategory(householdID, categoryID string) error {
	category, err := s.GetCategoryByID(householdID, categoryID)
	if err != nil {
		return err
	}

	if category.Type == models.CategoryTypeSystem {
		return apperrors.ErrSystemCategory
	}

	var lineCount int64
	if err := s.db.Model(&models.TransactionLine{}).
		Where("category_id = ?", categoryID).
		Count(&lineCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if lineCount > 0 {
		return apperrors.ErrCategoryInUse
	}

	var allocationCount int64
	if err := s.db.Model(&models.Allocation{}).
		Where("category_id = ?", categoryID).
		Count(&allocationCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if allocationCount > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SeedSystemCategories creates the reserved categories for a new household.
func (s *categoryService) SeedSystemCategories(tx *gorm.DB, householdID string) error {
	seed := []models.Category{
		{
			HouseholdID: householdID,
			Name:        models.SystemCategoryBalanceAdjustment,
			Type:        models.CategoryTypeSystem,
			Description: "Reconciles an account's stored balance to its real-world value",
		},
	}

	for i := range seed {
		if err := tx.Create(&seed[i]).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}
