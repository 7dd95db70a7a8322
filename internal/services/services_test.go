package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage/memory"
)

type recordingPublisher struct {
	events []*amqp.ExpenseEventMessage
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, msg *amqp.ExpenseEventMessage) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, msg)
	return nil
}

type recordingInvalidator struct {
	users []int64
}

func (i *recordingInvalidator) Invalidate(userID int64) {
	i.users = append(i.users, userID)
}

var errBrokerDown = errors.New("broker down")

func newUser(t *testing.T, s *memory.Store, role string, budget string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), core.User{
		Email:  role + "@example.com",
		Role:   role,
		Budget: decimal.RequireFromString(budget),
	})
	require.NoError(t, err)
	return id
}

func addExpense(t *testing.T, s *memory.Store, userID int64, date core.Date, category, amount string) int64 {
	t.Helper()
	id, err := s.CreateExpense(context.Background(), core.Expense{
		UserID:   userID,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Date:     date,
	})
	require.NoError(t, err)
	return id
}
