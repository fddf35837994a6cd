package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fondi/internal/core"
	"fondi/internal/storage"
)

// AssetPosition pairs an asset with its derived balances.
type AssetPosition struct {
	Asset         core.Asset
	MoneyMinor    int64
	QuantityMinor int64
}

// LiabilityPosition pairs a liability with its derived balance.
type LiabilityPosition struct {
	Liability    core.Liability
	BalanceMinor int64
}

// FundOverview is a fund with every position's current balance.
type FundOverview struct {
	Fund        core.Fund
	Assets      []AssetPosition
	Liabilities []LiabilityPosition
	// NetMoneyMinor is asset money plus liability balances. Liability
	// deltas are already negative for debt, so this is a plain sum.
	NetMoneyMinor int64
}

// OverviewService derives fund-level balance views from the ledger.
type OverviewService struct {
	storage *storage.Repository
}

func NewOverviewService(st *storage.Repository) *OverviewService {
	return &OverviewService{storage: st}
}

// FundOverview loads a fund's positions and fetches all balances
// concurrently. Balance reads are independent SELECTs, so the fan-out is
// safe on a shared handle.
func (s *OverviewService) FundOverview(ctx context.Context, fundID int64) (FundOverview, error) {
	fund, err := s.storage.GetFund(ctx, fundID)
	if err != nil {
		return FundOverview{}, fmt.Errorf("load fund: %w", err)
	}
	assets, err := s.storage.ListAssetsByFund(ctx, fundID)
	if err != nil {
		return FundOverview{}, fmt.Errorf("list assets: %w", err)
	}
	liabilities, err := s.storage.ListLiabilitiesByFund(ctx, fundID)
	if err != nil {
		return FundOverview{}, fmt.Errorf("list liabilities: %w", err)
	}

	ov := FundOverview{
		Fund:        fund,
		Assets:      make([]AssetPosition, len(assets)),
		Liabilities: make([]LiabilityPosition, len(liabilities)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range assets {
		g.Go(func() error {
			bal, err := s.storage.AssetBalance(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("asset %d balance: %w", a.ID, err)
			}
			ov.Assets[i] = AssetPosition{
				Asset:         a,
				MoneyMinor:    bal.MoneyMinor,
				QuantityMinor: bal.QuantityMinor,
			}
			return nil
		})
	}
	for i, l := range liabilities {
		g.Go(func() error {
			bal, err := s.storage.LiabilityBalance(gctx, l.ID)
			if err != nil {
				return fmt.Errorf("liability %d balance: %w", l.ID, err)
			}
			ov.Liabilities[i] = LiabilityPosition{Liability: l, BalanceMinor: bal}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FundOverview{}, err
	}

	for _, p := range ov.Assets {
		ov.NetMoneyMinor += p.MoneyMinor
	}
	for _, p := range ov.Liabilities {
		ov.NetMoneyMinor += p.BalanceMinor
	}
	return ov, nil
}
