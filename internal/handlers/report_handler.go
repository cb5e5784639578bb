package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hearth/internal/services"
)

// ReportHandler handles reporting requests.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetMonthlySummary returns the household's monthly summary
// @Summary     Get monthly summary
// @Description Get the household's income, expenses, net, unallocated pool, and per-category totals for a month
// @Tags        reports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       month query string true "Month (YYYY-MM or YYYY-MM-DD)"
// @Success     200 {object} services.MonthlySummary "Monthly summary"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/monthly [get]
func (h *ReportHandler) GetMonthlySummary(c *gin.Context) {
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

	summary, err := h.reportService.MonthlySummary(householdID, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
