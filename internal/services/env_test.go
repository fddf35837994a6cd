package services

import (
	"context"
	"path/filepath"
	"testing"

	"fondi/internal/core"
	"fondi/internal/storage"
)

type env struct {
	repo     *storage.Repository
	resolver *CashResolver
}

func newEnv(t *testing.T) env {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "fondi_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return env{repo: repo, resolver: NewCashResolver(repo)}
}

func (e env) seedFund(t *testing.T, name string) core.Fund {
	t.Helper()
	fund, err := e.repo.UpsertFund(context.Background(), core.Fund{Name: name})
	if err != nil {
		t.Fatalf("seed fund %s: %v", name, err)
	}
	return fund
}

func (e env) seedAccount(t *testing.T, name, currency string) core.Account {
	t.Helper()
	account, err := e.repo.UpsertAccount(context.Background(), core.Account{Name: name, Currency: currency})
	if err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	return account
}

func (e env) seedCashAsset(t *testing.T, fundID, accountID int64, name, currency string) core.Asset {
	t.Helper()
	asset, err := e.repo.UpsertAsset(context.Background(), core.Asset{
		FundID: fundID, AccountID: accountID, Name: name, Kind: core.AssetCash,
		Cash: &core.CashDetails{Currency: currency},
	})
	if err != nil {
		t.Fatalf("seed cash asset %s: %v", name, err)
	}
	return asset
}

func (e env) seedCategory(t *testing.T, name string) core.Category {
	t.Helper()
	cat, err := e.repo.UpsertCategory(context.Background(), core.Category{Name: name})
	if err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return cat
}

func (e env) seedIncome(t *testing.T, monthKey string, amountMinor int64) core.Income {
	t.Helper()
	key := core.MonthKey(monthKey)
	in, err := e.repo.UpsertIncome(context.Background(), core.Income{
		MonthKey:    key,
		IncomeDate:  key.FirstDate(),
		Description: "seed income",
		AmountMinor: amountMinor,
	})
	if err != nil {
		t.Fatalf("seed income: %v", err)
	}
	return in
}

func (e env) seedTransaction(t *testing.T, monthKey string, categoryID, amountMinor int64) core.Transaction {
	t.Helper()
	key := core.MonthKey(monthKey)
	tx, err := e.repo.UpsertTransaction(context.Background(), core.Transaction{
		MonthKey:    key,
		TxDate:      key.FirstDate(),
		Description: "seed transaction",
		CategoryID:  categoryID,
		AmountMinor: amountMinor,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func (e env) assetMoney(t *testing.T, assetID int64) int64 {
	t.Helper()
	bal, err := e.repo.AssetBalance(context.Background(), assetID)
	if err != nil {
		t.Fatalf("asset balance: %v", err)
	}
	return bal.MoneyMinor
}
