package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fondi/internal/core"
)

type rowSyncFixture struct {
	env
	fund  core.Fund
	cash  core.Asset
	food  core.Category
	rsync *RowSync
}

func newRowSyncFixture(t *testing.T) rowSyncFixture {
	t.Helper()
	e := newEnv(t)
	ctx := context.Background()

	fund := e.seedFund(t, "Spending")
	account := e.seedAccount(t, "Bank", "EUR")
	cash := e.seedCashAsset(t, fund.ID, account.ID, "Cash", "EUR")
	food := e.seedCategory(t, "Food")

	if _, err := e.repo.UpsertBudget(ctx, core.Budget{
		BudgetMonthKey: "2025-03",
		IncomeMonthKey: "2025-03",
		CapMinor:       100000,
		SpendingFundID: fund.ID,
	}, nil); err != nil {
		t.Fatalf("seed budget: %v", err)
	}

	return rowSyncFixture{
		env:   e,
		fund:  fund,
		cash:  cash,
		food:  food,
		rsync: NewRowSync(e.repo, nil),
	}
}

func TestSaveIncomeMirrorsEvent(t *testing.T) {
	f := newRowSyncFixture(t)
	ctx := context.Background()

	saved, err := f.rsync.SaveIncome(ctx, core.Income{
		MonthKey:    "2025-03",
		IncomeDate:  core.NewDate(2025, 3, 1),
		Description: "Salary",
		AmountMinor: 250000,
	})
	if err != nil {
		t.Fatalf("save income: %v", err)
	}
	if saved.FundEventID == nil {
		t.Fatal("saved income must link its mirrored event")
	}

	ev, lines, err := f.repo.GetEvent(ctx, *saved.FundEventID)
	if err != nil {
		t.Fatalf("load mirrored event: %v", err)
	}
	if want := fmt.Sprintf("Income %d", saved.ID); ev.Memo != want {
		t.Fatalf("memo = %q, want %q", ev.Memo, want)
	}
	if len(lines) != 1 || lines[0].MoneyDelta != 250000 {
		t.Fatalf("lines = %+v, want one +250000 line", lines)
	}
	if got := f.assetMoney(t, f.cash.ID); got != 250000 {
		t.Fatalf("cash balance = %d, want 250000", got)
	}
}

func TestSaveIncomeZeroAmountDeletesEvent(t *testing.T) {
	f := newRowSyncFixture(t)
	ctx := context.Background()

	saved, err := f.rsync.SaveIncome(ctx, core.Income{
		MonthKey:    "2025-03",
		IncomeDate:  core.NewDate(2025, 3, 1),
		AmountMinor: 250000,
	})
	if err != nil {
		t.Fatalf("save income: %v", err)
	}
	linked := *saved.FundEventID

	saved.AmountMinor = 0
	saved, err = f.rsync.SaveIncome(ctx, saved)
	if err != nil {
		t.Fatalf("zero income: %v", err)
	}
	if saved.FundEventID != nil {
		t.Fatalf("link = %v, want nil", *saved.FundEventID)
	}
	if _, _, err := f.repo.GetEvent(ctx, linked); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("mirrored event err = %v, want ErrNotFound", err)
	}
	if got := f.assetMoney(t, f.cash.ID); got != 0 {
		t.Fatalf("cash balance = %d, want 0", got)
	}

	// Restoring a nonzero amount creates a fresh link.
	saved.AmountMinor = 100000
	saved, err = f.rsync.SaveIncome(ctx, saved)
	if err != nil {
		t.Fatalf("restore income: %v", err)
	}
	if saved.FundEventID == nil {
		t.Fatal("restored income must link a new event")
	}
	if *saved.FundEventID == linked {
		t.Fatal("restored income must not reuse the deleted event id")
	}
}

func TestSaveIncomeUpdateReusesEvent(t *testing.T) {
	f := newRowSyncFixture(t)
	ctx := context.Background()

	saved, err := f.rsync.SaveIncome(ctx, core.Income{
		MonthKey:    "2025-03",
		IncomeDate:  core.NewDate(2025, 3, 1),
		AmountMinor: 250000,
	})
	if err != nil {
		t.Fatalf("save income: %v", err)
	}
	linked := *saved.FundEventID

	saved.AmountMinor = 300000
	saved, err = f.rsync.SaveIncome(ctx, saved)
	if err != nil {
		t.Fatalf("update income: %v", err)
	}
	if *saved.FundEventID != linked {
		t.Fatalf("update relinked %s, want %s", *saved.FundEventID, linked)
	}
	if got := f.assetMoney(t, f.cash.ID); got != 300000 {
		t.Fatalf("cash balance = %d, want 300000", got)
	}
}

func TestDeleteIncomeDeletesEventFirst(t *testing.T) {
	f := newRowSyncFixture(t)
	ctx := context.Background()

	saved, err := f.rsync.SaveIncome(ctx, core.Income{
		MonthKey:    "2025-03",
		IncomeDate:  core.NewDate(2025, 3, 1),
		AmountMinor: 250000,
	})
	if err != nil {
		t.Fatalf("save income: %v", err)
	}
	linked := *saved.FundEventID

	if err := f.rsync.DeleteIncome(ctx, saved.ID); err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if _, err := f.repo.GetIncome(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("row err = %v, want ErrNotFound", err)
	}
	if _, _, err := f.repo.GetEvent(ctx, linked); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("event err = %v, want ErrNotFound", err)
	}
}

func TestSaveTransactionPostsNegativeDelta(t *testing.T) {
	f := newRowSyncFixture(t)
	ctx := context.Background()

	saved, err := f.rsync.SaveTransaction(ctx, core.Transaction{
		MonthKey:    "2025-03",
		TxDate:      core.NewDate(2025, 3, 14),
		Description: "Groceries",
		CategoryID:  f.food.ID,
		AmountMinor: 4550,
	})
	if err != nil {
		t.Fatalf("save transaction: %v", err)
	}
	if saved.FundEventID == nil {
		t.Fatal("saved transaction must link its mirrored event")
	}

	ev, lines, err := f.repo.GetEvent(ctx, *saved.FundEventID)
	if err != nil {
		t.Fatalf("load mirrored event: %v", err)
	}
	if want := fmt.Sprintf("Budget transaction %d", saved.ID); ev.Memo != want {
		t.Fatalf("memo = %q, want %q", ev.Memo, want)
	}
	if len(lines) != 1 || lines[0].MoneyDelta != -4550 {
		t.Fatalf("lines = %+v, want one -4550 line", lines)
	}
	if got := f.assetMoney(t, f.cash.ID); got != -4550 {
		t.Fatalf("cash balance = %d, want -4550", got)
	}

	if err := f.rsync.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if got := f.assetMoney(t, f.cash.ID); got != 0 {
		t.Fatalf("cash balance after delete = %d, want 0", got)
	}
}

func TestSaveIncomeWithoutBudgetFails(t *testing.T) {
	f := newRowSyncFixture(t)
	ctx := context.Background()

	_, err := f.rsync.SaveIncome(ctx, core.Income{
		MonthKey:    "2025-07",
		IncomeDate:  core.NewDate(2025, 7, 1),
		AmountMinor: 100,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// The failed save rolls back as a unit; no orphan row survives it.
	rows, err := f.repo.ListIncomesByMonth(ctx, "2025-07")
	if err != nil {
		t.Fatalf("list incomes: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want none after rollback", len(rows))
	}
}
