package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/pagination"
	"hearth/internal/services"
)

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn         func(householdID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	getHouseholdCategoriesFn func(householdID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoryByIDFn        func(householdID, categoryID string) (*models.Category, error)
	updateCategoryFn         func(householdID, categoryID string, name, description, icon, color string) (*models.Category, error)
	deleteCategoryFn         func(householdID, categoryID string) error
}

func (m *mockCategoryService) CreateCategory(householdID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(householdID, name, categoryType, description, icon, color)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetHouseholdCategories(householdID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.getHouseholdCategoriesFn != nil {
		return m.getHouseholdCategoriesFn(householdID, categoryType, page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetCategoryByID(householdID, categoryID string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(householdID, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) UpdateCategory(householdID, categoryID string, name, description, icon, color string) (*models.Category, error) {
	if m.updateCategoryFn != nil {
		return m.updateCategoryFn(householdID, categoryID, name, description, icon, color)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(householdID, categoryID string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(householdID, categoryID)
	}
	return nil
}

func (m *mockCategoryService) SeedSystemCategories(_ *gorm.DB, _ string) error {
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectAuth(testUserID, testHouseholdID))
	auth.POST("/categories", handler.CreateCategory)
	auth.GET("/categories", handler.GetHouseholdCategories)
	auth.GET("/categories/:id", handler.GetCategoryByID)
	auth.PUT("/categories/:id", handler.UpdateCategory)
	auth.DELETE("/categories/:id", handler.DeleteCategory)
	return r
}

const testCategoryID = "0198e9a0-0000-7000-8000-00000000000c"

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(_, name string, catType models.CategoryType, _, icon, _ string) (*models.Category, error) {
				return &models.Category{
					Base: models.Base{ID: testCategoryID},
					Name: name,
					Type: catType,
					Icon: icon,
				}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories",
			`{"name":"Groceries","type":"expense","icon":"cart","color":"#FF0000"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		cat := result["category"].(map[string]interface{})
		if cat["name"] != "Groceries" {
			t.Errorf("expected Groceries, got %v", cat["name"])
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"type":"expense"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Groceries","type":"invalid"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid color format", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Groceries","type":"expense","color":"red"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/categories", handler.CreateCategory)

		rec := doRequest(r, "POST", "/categories", `{"name":"Groceries","type":"expense"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetHouseholdCategories(t *testing.T) {
	t.Run("returns 200 with all categories", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getHouseholdCategoriesFn: func(_ string, _ *models.CategoryType, _ pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				resp := pagination.NewPageResponse([]models.Category{
					{Name: "Groceries", Type: models.CategoryTypeExpense},
					{Name: "Salary", Type: models.CategoryTypeIncome},
				}, 1, 20, 2)
				return &resp, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 categories, got %d", len(data))
		}
	})

	t.Run("filters by type", func(t *testing.T) {
		var capturedType *models.CategoryType
		catSvc := &mockCategoryService{
			getHouseholdCategoriesFn: func(_ string, catType *models.CategoryType, _ pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				capturedType = catType
				resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		doRequest(r, "GET", "/categories?type=income", "")

		if capturedType == nil || *capturedType != models.CategoryTypeIncome {
			t.Errorf("expected income filter, got %v", capturedType)
		}
	})

	t.Run("returns 400 on invalid type filter", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories?type=invalid", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestCategoryHandler_GetCategoryByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getCategoryByIDFn: func(_, catID string) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: catID}, Name: "Groceries"}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/not-a-uuid", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getCategoryByIDFn: func(_, _ string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			updateCategoryFn: func(_, catID, name, _, _, _ string) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: catID}, Name: name}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "PUT", "/categories/"+testCategoryID, `{"name":"Food"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		cat := result["category"].(map[string]interface{})
		if cat["name"] != "Food" {
			t.Errorf("expected Food, got %v", cat["name"])
		}
	})

	t.Run("returns 400 on system category", func(t *testing.T) {
		catSvc := &mockCategoryService{
			updateCategoryFn: func(_, _, _, _, _, _ string) (*models.Category, error) {
				return nil, apperrors.ErrSystemCategory
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "PUT", "/categories/"+testCategoryID, `{"name":"Renamed"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SYSTEM_CATEGORY")
	})
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "DELETE", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["message"] != "Category deleted successfully" {
			t.Errorf("unexpected message: %v", result["message"])
		}
	})

	t.Run("returns 409 when in use", func(t *testing.T) {
		catSvc := &mockCategoryService{
			deleteCategoryFn: func(_, _ string) error {
				return apperrors.ErrCategoryInUse
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "DELETE", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_IN_USE")
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		catSvc := &mockCategoryService{
			deleteCategoryFn: func(_, _ string) error {
				return apperrors.ErrCategoryNotFound
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "DELETE", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
