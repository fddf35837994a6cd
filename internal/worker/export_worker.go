// Package worker reacts to ledger change notifications by re-exporting the
// affected budget month's report.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fondi/internal/amqp"
	"fondi/internal/core"
	"fondi/internal/services"
	"fondi/internal/sheets"
)

// ExportWorker consumes ledger change messages and rewrites the month
// report of the budget the change belongs to. Exports are idempotent
// whole-tab writes, so replaying a message is harmless.
type ExportWorker struct {
	budgets *services.BudgetService
	writer  sheets.ReportWriter
}

func NewExportWorker(budgets *services.BudgetService, writer sheets.ReportWriter) *ExportWorker {
	return &ExportWorker{budgets: budgets, writer: writer}
}

// HandleLedgerChange processes one change message. Messages without a
// usable month or for a month with no budget are dropped, not requeued;
// only export failures are worth retrying.
func (w *ExportWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	key, err := core.ParseMonthKey(msg.MonthKey)
	if err != nil {
		slog.WarnContext(ctx, "Dropping change message with unusable month",
			"event_id", msg.EventID, "month_key", msg.MonthKey, "error", err)
		return nil
	}

	report, err := w.budgets.Report(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "No budget for changed month, nothing to export",
			"event_id", msg.EventID, "month_key", msg.MonthKey)
		return nil
	}
	if err != nil {
		return fmt.Errorf("assemble report for %s: %w", key, err)
	}

	ref, err := w.writer.WriteMonthReport(ctx, report)
	if err != nil {
		return fmt.Errorf("write report for %s: %w", key, err)
	}

	slog.InfoContext(ctx, "Exported month report after ledger change",
		"event_id", msg.EventID,
		"change", msg.Change,
		"month_key", msg.MonthKey,
		"range", ref)
	return nil
}
