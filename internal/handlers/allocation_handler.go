package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "hearth/internal/errors"
	"hearth/internal/money"
	"hearth/internal/services"
)

// AllocationHandler handles envelope allocation requests.
type AllocationHandler struct {
	allocationService services.AllocationServicer
	auditService      services.AuditServicer
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(allocationService services.AllocationServicer, auditService services.AuditServicer) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService, auditService: auditService}
}

// UpsertAllocationRequest represents the request payload for setting a
// category's budget target for a month.
type UpsertAllocationRequest struct {
	CategoryID string          `json:"category_id" binding:"required,uuid"`
	Month      string          `json:"month" binding:"required,month_key"`
	Allocated  decimal.Decimal `json:"allocated"`
	Notes      string          `json:"notes" binding:"max=500"`
}

// FundEntryRequest is one target of a funding batch.
type FundEntryRequest struct {
	AllocationID string          `json:"allocation_id" binding:"required,uuid"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
}

// FundRequest represents the request payload for funding envelopes from
// the month's unallocated pool.
type FundRequest struct {
	Month   string             `json:"month" binding:"required,month_key"`
	Entries []FundEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// MoveRequest represents the request payload for moving funds between envelopes.
type MoveRequest struct {
	FromAllocationID string          `json:"from_allocation_id" binding:"required,uuid"`
	ToAllocationID   string          `json:"to_allocation_id" binding:"required,uuid"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
}

// AllocationResponse represents an allocation with derived figures.
type AllocationResponse struct {
	ID        string          `json:"id"`
	Month     string          `json:"month"`
	Allocated decimal.Decimal `json:"allocated"`
	Available decimal.Decimal `json:"available"`
	Spent     decimal.Decimal `json:"spent"`
	Balance   decimal.Decimal `json:"balance"`
	ToFund    decimal.Decimal `json:"to_fund"`
}

// parseMonthQuery reads the required month query parameter.
func parseMonthQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("month")
	if raw == "" {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "month query parameter is required")
	}
	month, err := money.ParseMonth(raw)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid month format")
	}
	return month, nil
}

// UpsertAllocation sets the budget target for a category and month
// @Summary     Set an allocation
// @Description Create or update the budget target for a category and month
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpsertAllocationRequest true "Allocation details"
// @Success     200 {object} AllocationResponse "Allocation saved"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocations [put]
func (h *AllocationHandler) UpsertAllocation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpsertAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	month, err := money.ParseMonth(req.Month)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid month format"))
		return
	}

	allocation, err := h.allocationService.Upsert(householdID, req.CategoryID, month, req.Allocated, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPSERT_ALLOCATION", "allocation", allocation.ID, c.ClientIP(),
		map[string]interface{}{"category_id": req.CategoryID, "month": req.Month, "allocated": req.Allocated.String()})

	c.JSON(http.StatusOK, gin.H{"allocation": allocation})
}

// FundAllocations funds envelopes from the month's unallocated pool
// @Summary     Fund allocations
// @Description Increase the funded balance of one or more envelopes, bounded by the month's unallocated pool. The whole batch succeeds or fails together.
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body FundRequest true "Funding batch"
// @Success     200 {object} AllocationResponse "Updated allocations"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient unallocated funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocations/fund [post]
func (h *AllocationHandler) FundAllocations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	month, err := money.ParseMonth(req.Month)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid month format"))
		return
	}

	entries := make([]services.FundEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		entries = append(entries, services.FundEntry{
			AllocationID: entry.AllocationID,
			Amount:       entry.Amount,
		})
	}

	updated, err := h.allocationService.Fund(householdID, month, entries)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "FUND_ALLOCATIONS", "allocation", "", c.ClientIP(),
		map[string]interface{}{"month": req.Month, "entries": len(req.Entries)})

	c.JSON(http.StatusOK, gin.H{"allocations": updated})
}

// MoveFunds transfers funded balance between envelopes
// @Summary     Move funds between allocations
// @Description Move un-spent funded balance from one envelope to another
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body MoveRequest true "Move details"
// @Success     200 {object} MessageResponse "Funds moved"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocations/move [post]
func (h *AllocationHandler) MoveFunds(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.allocationService.Move(householdID, req.FromAllocationID, req.ToAllocationID, req.Amount); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "MOVE_FUNDS", "allocation", req.FromAllocationID, c.ClientIP(),
		map[string]interface{}{"to": req.ToAllocationID, "amount": req.Amount.String()})

	c.JSON(http.StatusOK, gin.H{"message": "Funds moved successfully"})
}

// GetAllocations lists the month's allocations with derived figures
// @Summary     Get allocations
// @Description Get the month's allocations with derived spent, balance, and to-fund figures
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       month query string true "Month (YYYY-MM or YYYY-MM-DD)"
// @Success     200 {object} AllocationResponse "Allocations"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocations [get]
func (h *AllocationHandler) GetAllocations(c *gin.Context) {
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	month, err := parseMonthQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	views, err := h.allocationService.List(householdID, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocations": views})
}

// GetUnallocatedFunds returns the month's unallocated pool
// @Summary     Get unallocated funds
// @Description Get the month's income not yet funded into any envelope
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       month query string true "Month (YYYY-MM or YYYY-MM-DD)"
// @Success     200 {object} map[string]string "Unallocated amount"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocations/unallocated [get]
func (h *AllocationHandler) GetUnallocatedFunds(c *gin.Context) {
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	month, err := parseMonthQuery(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	unallocated, err := h.allocationService.UnallocatedFunds(householdID, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"month":       month.Format("2006-01"),
		"unallocated": unallocated,
	})
}

// DeleteAllocation removes an allocation
// @Summary     Delete allocation
// @Description Remove an envelope; posted transactions are not affected
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Allocation ID"
// @Success     200 {object} MessageResponse "Allocation deleted"
// @Failure     400 {object} ErrorResponse "Invalid allocation ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /allocations/{id} [delete]
func (h *AllocationHandler) DeleteAllocation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	allocationID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.allocationService.Delete(householdID, allocationID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_ALLOCATION", "allocation", allocationID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Allocation deleted successfully"})
}
