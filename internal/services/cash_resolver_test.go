package services

import (
	"context"
	"errors"
	"testing"

	"fondi/internal/core"
)

func TestResolveExplicitAsset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Spending")
	other := e.seedFund(t, "Savings")
	account := e.seedAccount(t, "Bank", "EUR")
	cash := e.seedCashAsset(t, fund.ID, account.ID, "Cash", "EUR")

	got, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, &cash.ID)
	if err != nil {
		t.Fatalf("resolve explicit: %v", err)
	}
	if got.ID != cash.ID {
		t.Fatalf("resolved asset %d, want %d", got.ID, cash.ID)
	}

	missing := cash.ID + 100
	if _, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, &missing); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing asset err = %v, want ErrNotFound", err)
	}

	stock, err := e.repo.UpsertAsset(ctx, core.Asset{
		FundID: fund.ID, AccountID: account.ID, Name: "ETF", Kind: core.AssetStock,
		Stock: &core.StockDetails{Ticker: "VWCE"},
	})
	if err != nil {
		t.Fatalf("seed stock asset: %v", err)
	}
	if _, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, &stock.ID); !errors.Is(err, core.ErrTypeMismatch) {
		t.Fatalf("stock asset err = %v, want ErrTypeMismatch", err)
	}

	if _, err := e.resolver.ResolveOrCreateCashAsset(ctx, other.ID, &cash.ID); !errors.Is(err, core.ErrFundMismatch) {
		t.Fatalf("wrong fund err = %v, want ErrFundMismatch", err)
	}
}

func TestResolveSingleCashAsset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Spending")
	account := e.seedAccount(t, "Bank", "EUR")
	cash := e.seedCashAsset(t, fund.ID, account.ID, "Cash", "EUR")

	got, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != cash.ID {
		t.Fatalf("resolved asset %d, want %d", got.ID, cash.ID)
	}
}

func TestResolveAutoCreatesFromFundAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Investments")
	e.seedAccount(t, "Euro bank", "EUR")
	usd := e.seedAccount(t, "US broker", "USD")
	if _, err := e.repo.UpsertAsset(ctx, core.Asset{
		FundID: fund.ID, AccountID: usd.ID, Name: "ETF", Kind: core.AssetStock,
		Stock: &core.StockDetails{Ticker: "VTI"},
	}); err != nil {
		t.Fatalf("seed stock asset: %v", err)
	}

	got, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// Currency comes from the fund's existing asset's account, not from the
	// first account in the system.
	if got.Name != "Auto Cash (USD)" {
		t.Fatalf("auto-created name = %q, want %q", got.Name, "Auto Cash (USD)")
	}
	if got.Cash == nil || got.Cash.Currency != "USD" {
		t.Fatalf("auto-created currency = %+v, want USD", got.Cash)
	}
	if got.AccountID != usd.ID {
		t.Fatalf("auto-created account = %d, want %d", got.AccountID, usd.ID)
	}

	again, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, nil)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if again.ID != got.ID {
		t.Fatalf("second resolve created a new asset: %d != %d", again.ID, got.ID)
	}
}

func TestResolveAutoCreatesFromFirstAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fund := e.seedFund(t, "Empty")
	account := e.seedAccount(t, "Bank", "EUR")

	got, err := e.resolver.ResolveOrCreateCashAsset(ctx, fund.ID, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name != "Auto Cash (EUR)" || got.AccountID != account.ID {
		t.Fatalf("auto-created = %+v, want Auto Cash (EUR) on account %d", got, account.ID)
	}
}

func TestResolveFailsWithoutAnyAccount(t *testing.T) {
	e := newEnv(t)
	fund := e.seedFund(t, "Empty")

	if _, err := e.resolver.ResolveOrCreateCashAsset(context.Background(), fund.ID, nil); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveAmbiguousCashAssets(t *testing.T) {
	e := newEnv(t)
	fund := e.seedFund(t, "Spending")
	account := e.seedAccount(t, "Bank", "EUR")
	e.seedCashAsset(t, fund.ID, account.ID, "Cash A", "EUR")
	e.seedCashAsset(t, fund.ID, account.ID, "Cash B", "EUR")

	_, err := e.resolver.ResolveOrCreateCashAsset(context.Background(), fund.ID, nil)
	var ambiguous *core.AmbiguousCashAssetError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("err = %v, want AmbiguousCashAssetError", err)
	}
	if ambiguous.Count != 2 || ambiguous.FundID != fund.ID {
		t.Fatalf("ambiguous = %+v", ambiguous)
	}
}
