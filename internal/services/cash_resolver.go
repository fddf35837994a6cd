package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"fondi/internal/core"
	"fondi/internal/storage"
)

// CashResolver finds the cash asset money lines should post against.
// Resolution can create an asset as a side effect, which is why the
// operation carries "OrCreate" in its name instead of hiding behind a
// getter.
type CashResolver struct {
	storage *storage.Repository
}

func NewCashResolver(st *storage.Repository) *CashResolver {
	return &CashResolver{storage: st}
}

// ResolveOrCreateCashAsset picks the cash asset of a fund.
//
// With an explicit asset id the asset must exist, be CASH and belong to the
// fund. Without one: a fund with exactly one cash asset uses it, a fund with
// none gets an auto-created one, and a fund with several fails so the caller
// has to disambiguate.
func (r *CashResolver) ResolveOrCreateCashAsset(ctx context.Context, fundID int64, explicitAssetID *int64) (core.Asset, error) {
	if explicitAssetID != nil {
		a, err := r.storage.GetAsset(ctx, *explicitAssetID)
		if err != nil {
			return core.Asset{}, fmt.Errorf("resolve explicit asset: %w", err)
		}
		if a.Kind != core.AssetCash {
			return core.Asset{}, fmt.Errorf("asset %d: %w", a.ID, core.ErrTypeMismatch)
		}
		if a.FundID != fundID {
			return core.Asset{}, fmt.Errorf("asset %d: %w", a.ID, core.ErrFundMismatch)
		}
		return a, nil
	}

	cash, err := r.storage.ListCashAssetsByFund(ctx, fundID)
	if err != nil {
		return core.Asset{}, fmt.Errorf("list cash assets: %w", err)
	}
	switch len(cash) {
	case 1:
		return cash[0], nil
	case 0:
		return r.autoCreateCashAsset(ctx, fundID)
	default:
		return core.Asset{}, &core.AmbiguousCashAssetError{FundID: fundID, Count: len(cash)}
	}
}

// autoCreateCashAsset adds a cash asset to a fund that has none. The account
// (and with it the currency) is inherited from an existing asset of the
// fund, falling back to the first account in the system.
func (r *CashResolver) autoCreateCashAsset(ctx context.Context, fundID int64) (core.Asset, error) {
	account, err := r.postingAccount(ctx, fundID)
	if err != nil {
		return core.Asset{}, err
	}

	created, err := r.storage.UpsertAsset(ctx, core.Asset{
		FundID:    fundID,
		AccountID: account.ID,
		Name:      fmt.Sprintf("Auto Cash (%s)", account.Currency),
		Kind:      core.AssetCash,
		Cash:      &core.CashDetails{Currency: account.Currency},
	})
	if err != nil {
		return core.Asset{}, fmt.Errorf("auto-create cash asset: %w", err)
	}

	slog.InfoContext(ctx, "Auto-created cash asset",
		"asset_id", created.ID,
		"fund_id", fundID,
		"currency", account.Currency)

	return created, nil
}

func (r *CashResolver) postingAccount(ctx context.Context, fundID int64) (core.Account, error) {
	assets, err := r.storage.ListAssetsByFund(ctx, fundID)
	if err != nil {
		return core.Account{}, fmt.Errorf("list fund assets: %w", err)
	}
	if len(assets) > 0 {
		account, err := r.storage.GetAccount(ctx, assets[0].AccountID)
		if err != nil {
			return core.Account{}, fmt.Errorf("load account %d: %w", assets[0].AccountID, err)
		}
		return account, nil
	}

	account, err := r.storage.FirstAccount(ctx)
	if err != nil {
		return core.Account{}, fmt.Errorf("fund %s has no assets and no account exists: %w",
			strconv.FormatInt(fundID, 10), err)
	}
	return account, nil
}
