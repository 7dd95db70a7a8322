package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/ports"
)

// EventPublisher announces expense changes to other processes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error
}

// Invalidator drops derived views of a user's data after a write.
type Invalidator interface {
	Invalidate(userID int64)
}

// ExpenseList is a user's full history with its total.
type ExpenseList struct {
	Expenses []core.Expense  `json:"expenses"`
	Total    decimal.Decimal `json:"total"`
}

// ExpenseService orchestrates user and expense writes across the store,
// AMQP and cached dashboards.
type ExpenseService struct {
	store       ports.ExpenseStore
	publisher   EventPublisher
	invalidator Invalidator
}

// NewExpenseService wires the service. publisher and invalidator may be nil.
func NewExpenseService(store ports.ExpenseStore, publisher EventPublisher, invalidator Invalidator) *ExpenseService {
	return &ExpenseService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
	}
}

// RegisterUser creates a user and returns it with its id.
func (s *ExpenseService) RegisterUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.TrimSpace(u.Email)
	u.Role = strings.ToLower(strings.TrimSpace(u.Role))
	id, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}
	u.ID = id
	return u, nil
}

func (s *ExpenseService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

// AddExpense saves an expense for an existing user and publishes a created event.
func (s *ExpenseService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if _, err := s.store.GetUser(ctx, e.UserID); err != nil {
		return core.Expense{}, err
	}

	e.Category = strings.TrimSpace(e.Category)
	e.Description = strings.TrimSpace(e.Description)
	id, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.afterWrite(ctx, amqp.ActionCreated, e.UserID, id)
	return e, nil
}

// ListExpenses returns every expense of userID, newest first, with the total.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64) (ExpenseList, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return ExpenseList{}, err
	}
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return ExpenseList{}, fmt.Errorf("list expenses: %w", err)
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return ExpenseList{Expenses: expenses, Total: total}, nil
}

// DeleteExpense removes an expense owned by userID and publishes a deleted event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.afterWrite(ctx, amqp.ActionDeleted, userID, id)
	return nil
}

func (s *ExpenseService) afterWrite(ctx context.Context, action string, userID, expenseID int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping expense event", "action", action)
		return
	}
	// The write already succeeded; a lost event only delays the export.
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(action, userID, expenseID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"action", action,
			"expense_id", expenseID,
			"error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
