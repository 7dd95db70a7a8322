package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage/memory"
)

type fakeExporter struct {
	exported []int64
	failOn   int64
}

func (f *fakeExporter) Export(_ context.Context, e core.Expense) (string, error) {
	if e.ID == f.failOn {
		return "", errors.New("sheets unavailable")
	}
	f.exported = append(f.exported, e.ID)
	return "Expenses!A1", nil
}

func seed(t *testing.T, s *memory.Store, dates ...core.Date) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(dates))
	for _, d := range dates {
		id, err := s.CreateExpense(context.Background(), core.Expense{
			UserID:   1,
			Category: "Food",
			Amount:   decimal.NewFromInt(10),
			Date:     d,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestExportWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ids := seed(t, store, core.NewDate(2024, 1, 1))
	exp := &fakeExporter{}
	w := NewExportWorker(store, exp)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.ActionCreated, 1, ids[0])))
	assert.Equal(t, []int64{ids[0]}, exp.exported)

	// deleted events and vanished expenses are acknowledged without exporting
	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.ActionDeleted, 1, ids[0])))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewExpenseEvent(amqp.ActionCreated, 1, 999)))
	assert.Len(t, exp.exported, 1)

	err := w.HandleEvent(ctx, &amqp.ExpenseEventMessage{Action: "updated", ExpenseID: ids[0]})
	assert.ErrorIs(t, err, amqp.ErrInvalidMessage)
}

func TestExportWorker_HandleEventPropagatesExportFailure(t *testing.T) {
	store := memory.New()
	ids := seed(t, store, core.NewDate(2024, 1, 1))
	w := NewExportWorker(store, &fakeExporter{failOn: ids[0]})

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.ActionCreated, 1, ids[0]))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets unavailable")
}

func TestExportWorker_ExportHistory(t *testing.T) {
	store := memory.New()
	ids := seed(t, store, core.NewDate(2024, 1, 3), core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 2))

	exp := &fakeExporter{}
	w := NewExportWorker(store, exp)
	require.NoError(t, w.ExportHistory(context.Background(), 1))
	assert.Equal(t, []int64{ids[1], ids[2], ids[0]}, exp.exported)

	failing := &fakeExporter{failOn: ids[2]}
	err := NewExportWorker(store, failing).ExportHistory(context.Background(), 1)
	require.Error(t, err)
	assert.Len(t, failing.exported, 2)
}

type readingExporter struct {
	fakeExporter
	rows []core.Expense
}

func (r *readingExporter) ReadExpenses(_ context.Context, year int) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range r.rows {
		if e.Date.Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestExportWorker_Audit(t *testing.T) {
	store := memory.New()
	ids := seed(t, store, core.NewDate(2024, 1, 1), core.NewDate(2024, 3, 1), core.NewDate(2023, 12, 31))

	exp := &readingExporter{rows: []core.Expense{
		{ID: ids[0], UserID: 1, Date: core.NewDate(2024, 1, 1)},
		{ID: 77, UserID: 2, Date: core.NewDate(2024, 1, 5)},
	}}
	report, err := NewExportWorker(store, exp).Audit(context.Background(), 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Exported)
	assert.Equal(t, []int64{ids[1]}, report.Missing)

	_, err = NewExportWorker(store, &fakeExporter{}).Audit(context.Background(), 1, 2024)
	assert.Error(t, err)
}
