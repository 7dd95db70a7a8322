package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the trailing window a dashboard covers.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps a query tag to a Period. Unknown tags fall back to month.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodMonth
	}
}

// WindowDays is the length of the trailing window in days.
func (p Period) WindowDays() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodYear:
		return 365
	default:
		return 30
	}
}

// WindowStart returns the first day included in the window ending at now.
func (p Period) WindowStart(now time.Time) Date {
	return DateOf(now).AddDays(-p.WindowDays())
}

// DisplayBudget scales a monthly budget to the period.
func (p Period) DisplayBudget(monthly decimal.Decimal) decimal.Decimal {
	switch p {
	case PeriodWeek:
		return monthly.Div(decimal.NewFromInt(4))
	case PeriodYear:
		return monthly.Mul(decimal.NewFromInt(12))
	default:
		return monthly
	}
}
