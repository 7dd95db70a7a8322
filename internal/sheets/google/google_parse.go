package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spendwise/internal/core"
)

var errNotExpenseRow = errors.New("not an expense row")

// Column order of an exported row: A id, B date, C category, D description,
// E amount, F user id.
func expenseRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Category,
		e.Description,
		e.Amount.StringFixed(2),
		e.UserID,
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func parseExpenseID(row []any) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseExpenseRow is the inverse of expenseRow. Header and blank rows yield
// errNotExpenseRow.
func parseExpenseRow(row []any) (core.Expense, error) {
	cols := toStrings(row)
	if len(cols) < 5 {
		return core.Expense{}, errNotExpenseRow
	}
	id, ok := parseExpenseID(row)
	if !ok {
		return core.Expense{}, errNotExpenseRow
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Expense{}, fmt.Errorf("row %d: %w", id, err)
	}
	// A numeric column format makes the sheet render "1200.00" as "1,200.00".
	amount, err := core.ParseAmount(strings.ReplaceAll(cols[4], ",", ""))
	if err != nil {
		return core.Expense{}, fmt.Errorf("row %d: %w", id, err)
	}
	e := core.Expense{
		ID:          id,
		Date:        date,
		Category:    cols[2],
		Description: cols[3],
		Amount:      amount,
	}
	if len(cols) >= 6 {
		if uid, err := strconv.ParseInt(cols[5], 10, 64); err == nil {
			e.UserID = uid
		}
	}
	return e, nil
}
