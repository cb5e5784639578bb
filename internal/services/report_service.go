package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/money"
)

// reportService builds read-side aggregates over the ledger.
type reportService struct {
	db                *gorm.DB
	allocationService AllocationServicer
}

// NewReportService creates a new ReportServicer.
func NewReportService(db *gorm.DB, allocationService AllocationServicer) ReportServicer {
	return &reportService{db: db, allocationService: allocationService}
}

// MonthlySummary aggregates a household's month in base currency: total
// income and expenses, the net, the unallocated pool, and a per-category
// breakdown. All figures sum the per-line rounded amounts so they match
// the ledger exactly.
func (s *reportService) MonthlySummary(householdID string, month time.Time) (*MonthlySummary, error) {
	month = money.MonthStart(month)
	start, end := money.MonthWindow(month)

	var lines []models.TransactionLine
	err := s.db.
		Joins("JOIN transactions ON transactions.id = transaction_lines.transaction_id AND transactions.deleted_at IS NULL").
		Where("transactions.household_id = ?", householdID).
		Where("transactions.date >= ? AND transactions.date < ?", start, end).
		Preload("Category").
		Find(&lines).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &MonthlySummary{
		Month:    month,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
	}

	byCategory := make(map[string]*CategorySpend)
	for i := range lines {
		base, err := lines[i].BaseAmount()
		if err != nil {
			return nil, err
		}

		if lines[i].Direction == models.LineDirectionIncome {
			summary.Income = summary.Income.Add(base)
		} else {
			summary.Expenses = summary.Expenses.Add(base)
		}

		spend, ok := byCategory[lines[i].CategoryID]
		if !ok {
			spend = &CategorySpend{
				CategoryID:   lines[i].CategoryID,
				CategoryName: lines[i].Category.Name,
				CategoryType: lines[i].Category.Type,
				Total:        decimal.Zero,
			}
			byCategory[lines[i].CategoryID] = spend
		}
		spend.Total = spend.Total.Add(base)
	}

	summary.Net = summary.Income.Sub(summary.Expenses)

	unallocated, err := s.allocationService.UnallocatedFunds(householdID, month)
	if err != nil {
		return nil, err
	}
	summary.Unallocated = unallocated

	summary.Categories = make([]CategorySpend, 0, len(byCategory))
	for _, spend := range byCategory {
		summary.Categories = append(summary.Categories, *spend)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].CategoryName < summary.Categories[j].CategoryName
	})

	return summary, nil
}
