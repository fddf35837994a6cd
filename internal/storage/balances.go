package storage

import (
	"context"
	"fmt"
)

// AssetBalance is a derived position: the sum of a single asset's money and
// quantity deltas. Never cached; summing the lines again is cheap at this
// scale and read-your-writes comes for free.
type AssetBalance struct {
	AssetID       int64
	MoneyMinor    int64
	QuantityMinor int64
}

func (r *Repository) AssetBalance(ctx context.Context, assetID int64) (AssetBalance, error) {
	b := AssetBalance{AssetID: assetID}
	err := r.q.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN line_kind = 'ASSET_MONEY' THEN money_delta ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN line_kind = 'ASSET_QUANTITY' THEN quantity_delta ELSE 0 END), 0)
		 FROM fund_event_line WHERE asset_id = ?`, assetID).
		Scan(&b.MoneyMinor, &b.QuantityMinor)
	if err != nil {
		return AssetBalance{}, fmt.Errorf("asset balance: %w", err)
	}
	return b, nil
}

func (r *Repository) LiabilityBalance(ctx context.Context, liabilityID int64) (int64, error) {
	var moneyMinor int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(money_delta), 0)
		 FROM fund_event_line WHERE liability_id = ? AND line_kind = 'LIABILITY_MONEY'`,
		liabilityID).
		Scan(&moneyMinor)
	if err != nil {
		return 0, fmt.Errorf("liability balance: %w", err)
	}
	return moneyMinor, nil
}
