package ports

import (
	"context"
	"errors"

	"spendwise/internal/core"
)

// ErrNotFound is returned by stores when a record does not exist or is not
// owned by the requesting user.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique field (a user's email) is taken.
var ErrConflict = errors.New("already exists")

// Ports for outbound adapters.
type (
	// ExpenseFetcher returns the records an aggregation runs over.
	ExpenseFetcher interface {
		// FetchExpenses returns userID's expenses dated on or after since,
		// sorted by date ascending.
		FetchExpenses(ctx context.Context, userID int64, since core.Date) ([]core.Expense, error)
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (id int64, err error)
	}

	ExpenseDeleter interface {
		// DeleteExpense removes an expense owned by userID.
		DeleteExpense(ctx context.Context, userID, id int64) error
	}

	// ExpenseLister returns the full history of a user.
	ExpenseLister interface {
		// ListExpenses returns all expenses of userID, newest first.
		ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
	}

	UserReader interface {
		GetUser(ctx context.Context, id int64) (core.User, error)
	}

	UserWriter interface {
		CreateUser(ctx context.Context, u core.User) (id int64, err error)
	}

	// ExpenseStore is the full record store a backend provides.
	ExpenseStore interface {
		ExpenseFetcher
		ExpenseWriter
		ExpenseDeleter
		ExpenseLister
		UserReader
		UserWriter
	}

	// ExpenseExporter mirrors expenses to an external sheet.
	ExpenseExporter interface {
		Export(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// ExportedExpenseReader reads back the rows an exporter wrote for a year.
	ExportedExpenseReader interface {
		ReadExpenses(ctx context.Context, year int) ([]core.Expense, error)
	}
)
