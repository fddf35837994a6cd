package core

import (
	"time"
)

// LineKind determines which delta field of a line is populated.
type LineKind string

const (
	LineAssetQuantity  LineKind = "ASSET_QUANTITY"
	LineAssetMoney     LineKind = "ASSET_MONEY"
	LineLiabilityMoney LineKind = "LIABILITY_MONEY"
)

// LineTarget points a line at exactly one asset or liability. The zero value
// is invalid; use AssetTarget or LiabilityTarget so the exclusivity holds by
// construction.
type LineTarget struct {
	assetID     int64
	liabilityID int64
}

func AssetTarget(assetID int64) LineTarget {
	return LineTarget{assetID: assetID}
}

func LiabilityTarget(liabilityID int64) LineTarget {
	return LineTarget{liabilityID: liabilityID}
}

func (t LineTarget) AssetID() (int64, bool) {
	return t.assetID, t.assetID != 0
}

func (t LineTarget) LiabilityID() (int64, bool) {
	return t.liabilityID, t.liabilityID != 0
}

func (t LineTarget) Validate() error {
	if (t.assetID != 0) == (t.liabilityID != 0) {
		return ErrLineTarget
	}
	return nil
}

// FundEvent is an economic occurrence on a date, composed of ordered lines.
type FundEvent struct {
	ID          string
	EventTypeID int64
	EventDate   Date
	Memo        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e FundEvent) Validate() error {
	if e.EventTypeID == 0 {
		return ErrMissingEventType
	}
	return e.EventDate.Validate()
}

// FundEventLine is one signed delta of an event. Depending on Kind exactly
// one of QuantityDelta/MoneyDelta is meaningful; the other stays zero and is
// persisted as NULL. UnitPriceMinor is informational only and never enters
// balance math. LineNo is assigned from payload order on upsert, never by
// the caller.
type FundEventLine struct {
	ID      string
	EventID string
	LineNo  int
	Target  LineTarget
	Kind    LineKind

	QuantityDelta int64
	MoneyDelta    int64

	UnitPriceMinor *int64
	FeeMinor       *int64
	Notes          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAssetQuantityLine builds a quantity delta against an asset.
func NewAssetQuantityLine(assetID, quantityDelta int64) FundEventLine {
	return FundEventLine{
		Target:        AssetTarget(assetID),
		Kind:          LineAssetQuantity,
		QuantityDelta: quantityDelta,
	}
}

// NewAssetMoneyLine builds a money delta against an asset.
func NewAssetMoneyLine(assetID, moneyDelta int64) FundEventLine {
	return FundEventLine{
		Target:     AssetTarget(assetID),
		Kind:       LineAssetMoney,
		MoneyDelta: moneyDelta,
	}
}

// NewLiabilityMoneyLine builds a money delta against a liability.
func NewLiabilityMoneyLine(liabilityID, moneyDelta int64) FundEventLine {
	return FundEventLine{
		Target:     LiabilityTarget(liabilityID),
		Kind:       LineLiabilityMoney,
		MoneyDelta: moneyDelta,
	}
}

func (l FundEventLine) Validate() error {
	if err := l.Target.Validate(); err != nil {
		return err
	}
	_, isAsset := l.Target.AssetID()
	switch l.Kind {
	case LineAssetQuantity:
		if !isAsset || l.MoneyDelta != 0 {
			return ErrLineKind
		}
	case LineAssetMoney:
		if !isAsset || l.QuantityDelta != 0 {
			return ErrLineKind
		}
	case LineLiabilityMoney:
		if isAsset || l.QuantityDelta != 0 {
			return ErrLineKind
		}
	default:
		return ErrLineKind
	}
	if l.FeeMinor != nil && *l.FeeMinor < 0 {
		return ErrNegativeFee
	}
	return nil
}
