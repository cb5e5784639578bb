package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/money"
	"hearth/internal/pagination"
	"hearth/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// LineRequest represents one line of a transaction payload. For lines in
// the household base currency, rate and rate_mode must be omitted.
type LineRequest struct {
	AccountID  string          `json:"account_id" binding:"required,uuid"`
	CategoryID string          `json:"category_id" binding:"required,uuid"`
	Direction  string          `json:"direction" binding:"required,tx_direction"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Currency   string          `json:"currency" binding:"required,iso4217"`
	Rate       decimal.Decimal `json:"exchange_rate"`
	RateMode   string          `json:"rate_mode" binding:"omitempty,rate_mode"`
	Notes      string          `json:"notes" binding:"max=500"`
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Date        string        `json:"date" binding:"required"`
	Title       string        `json:"title" binding:"required,min=1,max=200"`
	Description string        `json:"description" binding:"max=1000"`
	Lines       []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// UpdateTransactionRequest represents the request payload for replacing a
// transaction's fields and full line set.
type UpdateTransactionRequest struct {
	Date        string        `json:"date" binding:"required"`
	Title       string        `json:"title" binding:"required,min=1,max=200"`
	Description string        `json:"description" binding:"max=1000"`
	Lines       []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// LineResponse represents a transaction line in the response, including the
// derived base-currency amount.
type LineResponse struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	CategoryID string          `json:"category_id"`
	Direction  string          `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Rate       decimal.Decimal `json:"exchange_rate"`
	RateMode   string          `json:"rate_mode"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Notes      string          `json:"notes,omitempty"`
}

// TransactionResponse represents a transaction in the response
type TransactionResponse struct {
	ID          string         `json:"id"`
	HouseholdID string         `json:"household_id"`
	CreatedByID string         `json:"created_by_id"`
	Date        time.Time      `json:"date"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Lines       []LineResponse `json:"lines"`
}

func transactionToResponse(tx *models.Transaction) (*TransactionResponse, error) {
	resp := &TransactionResponse{
		ID:          tx.ID,
		HouseholdID: tx.HouseholdID,
		CreatedByID: tx.CreatedByID,
		Date:        tx.Date,
		Title:       tx.Title,
		Description: tx.Description,
		Lines:       make([]LineResponse, 0, len(tx.Lines)),
	}
	for i := range tx.Lines {
		base, err := tx.Lines[i].BaseAmount()
		if err != nil {
			return nil, err
		}
		resp.Lines = append(resp.Lines, LineResponse{
			ID:         tx.Lines[i].ID,
			AccountID:  tx.Lines[i].AccountID,
			CategoryID: tx.Lines[i].CategoryID,
			Direction:  string(tx.Lines[i].Direction),
			Amount:     tx.Lines[i].Amount,
			Currency:   tx.Lines[i].Currency,
			Rate:       tx.Lines[i].Rate,
			RateMode:   string(tx.Lines[i].RateMode),
			BaseAmount: base,
			Notes:      tx.Lines[i].Notes,
		})
	}
	return resp, nil
}

// parseDate accepts RFC3339 timestamps and plain dates.
func parseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format")
		}
	}
	return parsed, nil
}

func linesToInputs(lines []LineRequest) []services.LineInput {
	inputs := make([]services.LineInput, 0, len(lines))
	for _, line := range lines {
		rateMode := money.RateMode(line.RateMode)
		if rateMode == "" {
			rateMode = money.RateModeNormal
		}
		inputs = append(inputs, services.LineInput{
			AccountID:  line.AccountID,
			CategoryID: line.CategoryID,
			Direction:  models.LineDirection(line.Direction),
			Amount:     line.Amount,
			Currency:   line.Currency,
			Rate:       line.Rate,
			RateMode:   rateMode,
			Notes:      line.Notes,
		})
	}
	return inputs
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Create a new multi-line transaction; all lines are posted atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} TransactionResponse "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
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

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.Create(householdID, userID, date, req.Title, req.Description, linesToInputs(req.Lines))
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := transactionToResponse(tx)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", tx.ID, c.ClientIP(),
		map[string]interface{}{"title": req.Title, "lines": len(req.Lines)})

	c.JSON(http.StatusCreated, gin.H{"transaction": resp})
}

// GetHouseholdTransactions handles the retrieval of the household's transactions
// @Summary     Get household transactions
// @Description Get a paginated list of transactions with optional filters
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from_date   query string false "Filter from date (YYYY-MM-DD)"
// @Param       to_date     query string false "Filter to date (YYYY-MM-DD)"
// @Param       account_id  query string false "Filter by account"
// @Param       category_id query string false "Filter by category"
// @Param       direction   query string false "Filter by line direction (income or expense)"
// @Param       page        query int false "Page number (default 1)"
// @Param       page_size   query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetHouseholdTransactions(c *gin.Context) {
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.TransactionFilter
	if raw := c.Query("from_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.FromDate = &parsed
	}
	if raw := c.Query("to_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.ToDate = &parsed
	}
	if raw := c.Query("account_id"); raw != "" {
		filter.AccountID = &raw
	}
	if raw := c.Query("category_id"); raw != "" {
		filter.CategoryID = &raw
	}
	if raw := c.Query("direction"); raw != "" {
		direction := models.LineDirection(raw)
		if direction != models.LineDirectionIncome && direction != models.LineDirectionExpense {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid direction"))
			return
		}
		filter.Direction = &direction
	}

	result, err := h.transactionService.GetHouseholdTransactions(householdID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction with its lines
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} TransactionResponse "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	householdID, err := getHouseholdID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.GetTransactionByID(householdID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := transactionToResponse(tx)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": resp})
}

// UpdateTransaction handles replacing a transaction's fields and lines.
// @Summary     Update transaction
// @Description Replace a transaction's fields and full line set; old postings are reversed and the new lines posted atomically
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Updated transaction details"
// @Success     200 {object} TransactionResponse "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
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

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.Update(householdID, transactionID, date, req.Title, req.Description, linesToInputs(req.Lines))
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := transactionToResponse(tx)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": resp})
}

// DeleteTransaction handles deleting a transaction.
// @Summary     Delete transaction
// @Description Delete a transaction, reversing all of its account postings
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
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

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.Delete(householdID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
