package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/log"
	"spendwise/internal/ports"
)

// ExportWorker mirrors newly created expenses to an external sheet.
type ExportWorker struct {
	expenses ports.ExpenseLister
	exporter ports.ExpenseExporter
}

func NewExportWorker(expenses ports.ExpenseLister, exporter ports.ExpenseExporter) *ExportWorker {
	return &ExportWorker{
		expenses: expenses,
		exporter: exporter,
	}
}

// HandleEvent processes a single expense event from AMQP. Returning an error
// asks the consumer to requeue the message.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	switch msg.Action {
	case amqp.ActionCreated:
		return w.exportOne(ctx, msg.ExpenseID)
	case amqp.ActionDeleted:
		// Exported rows are an append-only ledger.
		slog.InfoContext(ctx, "Ignoring delete event for exported expense",
			log.FieldEventID, msg.EventID,
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", amqp.ErrInvalidMessage, msg.Action)
	}
}

func (w *ExportWorker) exportOne(ctx context.Context, id int64) error {
	expense, err := w.expenses.GetExpense(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		slog.WarnContext(ctx, "Expense gone before export, skipping", log.FieldExpenseID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.exporter.Export(ctx, expense)
	if err != nil {
		return fmt.Errorf("export expense %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Exported expense",
		log.FieldExpenseID, id,
		log.FieldUserID, expense.UserID,
		log.FieldRowRef, ref,
		log.FieldCategory, expense.Category,
		log.FieldAmount, expense.Amount.String())
	return nil
}

// ExportHistory exports every expense of userID. The exporter skips rows it
// already holds, so this can recover from events lost while the worker was down.
func (w *ExportWorker) ExportHistory(ctx context.Context, userID int64) error {
	expenses, err := w.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return fmt.Errorf("list expenses for user %d: %w", userID, err)
	}

	successCount, errorCount := 0, 0
	// Oldest first so sheet rows stay chronological
	for i := len(expenses) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.exporter.Export(ctx, expenses[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense", log.FieldExpenseID, expenses[i].ID, log.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "History export completed",
		log.FieldUserID, userID,
		"total", len(expenses),
		"exported", successCount,
		"errors", errorCount)

	if errorCount > 0 {
		return fmt.Errorf("history export for user %d: %d of %d expenses failed", userID, errorCount, len(expenses))
	}
	return nil
}

// AuditReport compares a user's stored expenses for one year with the rows
// found in the export sheet.
type AuditReport struct {
	Stored   int
	Exported int
	Missing  []int64
}

// Audit reports which of userID's expenses dated in year have no exported
// row. The exporter must also implement ports.ExportedExpenseReader.
func (w *ExportWorker) Audit(ctx context.Context, userID int64, year int) (AuditReport, error) {
	reader, ok := w.exporter.(ports.ExportedExpenseReader)
	if !ok {
		return AuditReport{}, errors.New("exporter cannot read back exported rows")
	}

	stored, err := w.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return AuditReport{}, fmt.Errorf("list expenses for user %d: %w", userID, err)
	}
	rows, err := reader.ReadExpenses(ctx, year)
	if err != nil {
		return AuditReport{}, fmt.Errorf("read exported rows for %d: %w", year, err)
	}

	exported := make(map[int64]struct{}, len(rows))
	var report AuditReport
	for _, e := range rows {
		if e.UserID != userID {
			continue
		}
		exported[e.ID] = struct{}{}
		report.Exported++
	}
	for _, e := range stored {
		if e.Date.Year() != year {
			continue
		}
		report.Stored++
		if _, ok := exported[e.ID]; !ok {
			report.Missing = append(report.Missing, e.ID)
		}
	}

	slog.InfoContext(ctx, "Export audit completed",
		log.FieldUserID, userID,
		"year", year,
		"stored", report.Stored,
		"exported", report.Exported,
		"missing", len(report.Missing))
	return report, nil
}
