// Package money holds the fixed-point arithmetic used by the ledger:
// exchange-rate conversion into a household's base currency and the
// calendar-month keys that allocations are bucketed by.
//
// All amounts are shopspring decimals rounded to two minor-unit digits
// before they touch the ledger, so stored balances and displayed values
// can never drift apart.
package money

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "hearth/internal/errors"
)

// RateMode describes how an entered exchange rate is to be applied.
type RateMode string

const (
	// RateModeNormal means 1 unit of the line currency = rate units of base currency.
	RateModeNormal RateMode = "normal"
	// RateModeInverted means 1 unit of base currency = rate units of the line currency.
	RateModeInverted RateMode = "inverted"
)

// Precision is the number of minor-unit digits for all supported currencies.
const Precision = 2

// Convert computes the base-currency amount for a line amount under the
// given rate and rate mode, rounded half-up to two digits. It is pure and
// deterministic: identical inputs always yield identical outputs, which
// the transaction engine relies on when reversing postings.
func Convert(amount, rate decimal.Decimal, mode RateMode) (decimal.Decimal, error) {
	if rate.Sign() <= 0 {
		return decimal.Zero, apperrors.ErrInvalidRate
	}

	switch mode {
	case RateModeNormal:
		return amount.Mul(rate).Round(Precision), nil
	case RateModeInverted:
		// DivRound keeps enough digits that the final Round is exact.
		return amount.DivRound(rate, Precision+4).Round(Precision), nil
	default:
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown rate mode %q", mode))
	}
}

// MonthStart normalizes a time to the first day of its calendar month in UTC.
// Allocations are keyed by this value.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns the half-open interval [start, end) covering the
// calendar month containing t.
func MonthWindow(t time.Time) (time.Time, time.Time) {
	start := MonthStart(t)
	return start, start.AddDate(0, 1, 0)
}

// ParseMonth parses a month key in "2006-01" or "2006-01-02" form and
// normalizes it to the first day of the month.
func ParseMonth(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), nil
		}
	}
	return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput,
		fmt.Sprintf("invalid month %q, expected YYYY-MM or YYYY-MM-01", s))
}
