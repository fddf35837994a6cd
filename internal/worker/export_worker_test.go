package worker

import (
	"context"
	"path/filepath"
	"testing"

	"fondi/internal/amqp"
	"fondi/internal/core"
	"fondi/internal/services"
	"fondi/internal/sheets/memory"
	"fondi/internal/storage"
)

func newWorker(t *testing.T) (*ExportWorker, *storage.Repository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "fondi_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	store := memory.New()
	return NewExportWorker(services.NewBudgetService(repo), store), repo, store
}

func seedBudget(t *testing.T, repo *storage.Repository, month string) core.Budget {
	t.Helper()
	ctx := context.Background()
	fund, err := repo.UpsertFund(ctx, core.Fund{Name: "Spending"})
	if err != nil {
		t.Fatalf("seed fund: %v", err)
	}
	budget, err := repo.UpsertBudget(ctx, core.Budget{
		BudgetMonthKey: core.MonthKey(month),
		IncomeMonthKey: core.MonthKey(month),
		CapMinor:       100000,
		SpendingFundID: fund.ID,
	}, nil)
	if err != nil {
		t.Fatalf("seed budget: %v", err)
	}
	return budget
}

func TestHandleLedgerChangeExportsReport(t *testing.T) {
	w, repo, store := newWorker(t)
	seedBudget(t, repo, "2025-03")

	key := core.MonthKey("2025-03")
	if _, err := repo.UpsertIncome(context.Background(), core.Income{
		MonthKey: key, IncomeDate: key.FirstDate(), AmountMinor: 150000,
	}); err != nil {
		t.Fatalf("seed income: %v", err)
	}

	msg := amqp.NewLedgerChangeMessage("evt-1", amqp.ChangeUpserted, "2025-03")
	if err := w.HandleLedgerChange(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	report, ok := store.Report("2025-03")
	if !ok {
		t.Fatal("report not written")
	}
	if report.TotalIncomeMinor != 150000 {
		t.Errorf("TotalIncomeMinor = %d", report.TotalIncomeMinor)
	}
}

func TestHandleLedgerChangeDropsUnknownMonth(t *testing.T) {
	w, _, store := newWorker(t)

	// No budget for the month: dropped without error so the message is acked.
	msg := amqp.NewLedgerChangeMessage("evt-1", amqp.ChangeDeleted, "2030-01")
	if err := w.HandleLedgerChange(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", store.Writes())
	}

	// Malformed month key: also dropped.
	msg = amqp.NewLedgerChangeMessage("evt-2", amqp.ChangeUpserted, "march")
	if err := w.HandleLedgerChange(context.Background(), msg); err != nil {
		t.Fatalf("handle malformed: %v", err)
	}
	if store.Writes() != 0 {
		t.Errorf("Writes() = %d after malformed, want 0", store.Writes())
	}
}

func TestHandleLedgerChangeReplacesOnRepeat(t *testing.T) {
	w, repo, store := newWorker(t)
	seedBudget(t, repo, "2025-03")

	msg := amqp.NewLedgerChangeMessage("evt-1", amqp.ChangeUpserted, "2025-03")
	ctx := context.Background()
	if err := w.HandleLedgerChange(ctx, msg); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := w.HandleLedgerChange(ctx, msg); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if store.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", store.Writes())
	}
	if _, ok := store.Report("2025-03"); !ok {
		t.Error("report missing after replay")
	}
}
