package core

import (
	"time"
)

// Budget plans one month of spending. BudgetMonthKey is unique; the cap
// limits the spendable pool; the handled flags are idempotency markers owned
// by the distribution engine.
type Budget struct {
	ID             int64
	BudgetMonthKey MonthKey
	IncomeMonthKey MonthKey
	CapMinor       int64
	Notes          string

	SurplusHandled   bool
	LeftoversHandled bool

	SpendingFundID  int64
	SpendingAssetID *int64
	OverageFundID   *int64
	OverageAssetID  *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b Budget) Validate() error {
	if err := b.BudgetMonthKey.Validate(); err != nil {
		return err
	}
	if err := b.IncomeMonthKey.Validate(); err != nil {
		return err
	}
	if b.CapMinor < 0 {
		return ErrInvalidAmount
	}
	if b.SpendingFundID == 0 {
		return ErrMissingOwner
	}
	return nil
}

type AllocationKind string

const (
	AllocationFixed   AllocationKind = "FIXED"
	AllocationPercent AllocationKind = "PERCENT"
)

// Allocation is either a fixed minor-unit amount or a fraction of a pool.
// The zero value is invalid; use FixedAllocation or PercentAllocation.
type Allocation struct {
	kind        AllocationKind
	amountMinor int64
	percent     float64
}

func FixedAllocation(amountMinor int64) Allocation {
	return Allocation{kind: AllocationFixed, amountMinor: amountMinor}
}

func PercentAllocation(fraction float64) Allocation {
	return Allocation{kind: AllocationPercent, percent: fraction}
}

func (a Allocation) Kind() AllocationKind { return a.kind }

// AmountMinor is meaningful only for FIXED allocations.
func (a Allocation) AmountMinor() int64 { return a.amountMinor }

// Percent is meaningful only for PERCENT allocations.
func (a Allocation) Percent() float64 { return a.percent }

func (a Allocation) Validate() error {
	switch a.kind {
	case AllocationFixed:
		if a.amountMinor < 0 {
			return ErrInvalidAmount
		}
	case AllocationPercent:
		if a.percent < 0 || a.percent > 1 {
			return ErrInvalidPercent
		}
	default:
		return ErrAllocationVariant
	}
	return nil
}

// Planned resolves the allocation against a pool: the fixed amount clamped
// to >= 0, or round(percent * pool).
func (a Allocation) Planned(poolMinor int64) int64 {
	switch a.kind {
	case AllocationFixed:
		if a.amountMinor < 0 {
			return 0
		}
		return a.amountMinor
	case AllocationPercent:
		return PercentOf(a.percent, poolMinor)
	default:
		return 0
	}
}

// BudgetLine allocates part of a budget's pool to one category. Keyed by
// (BudgetID, CategoryID).
type BudgetLine struct {
	BudgetID   int64
	CategoryID int64
	Alloc      Allocation
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (l BudgetLine) Validate() error {
	if l.CategoryID == 0 {
		return ErrMissingCategory
	}
	return l.Alloc.Validate()
}

type DistributionSource string

const (
	SourceSurplus  DistributionSource = "SURPLUS"
	SourceCategory DistributionSource = "CATEGORY"
)

// DistributionRule routes surplus income or a category's leftover into a
// fund's cash asset. CATEGORY rules are percent-only: a fixed amount taken
// from a leftover that shrinks with spending would routinely overshoot.
type DistributionRule struct {
	ID         int64
	BudgetID   int64
	Source     DistributionSource
	CategoryID *int64
	FundID     int64
	AssetID    *int64
	Alloc      Allocation
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r DistributionRule) Validate() error {
	if r.FundID == 0 {
		return ErrMissingOwner
	}
	if err := r.Alloc.Validate(); err != nil {
		return err
	}
	switch r.Source {
	case SourceSurplus:
		if r.CategoryID != nil {
			return ErrRuleCategory
		}
	case SourceCategory:
		if r.CategoryID == nil {
			return ErrMissingCategory
		}
		if r.Alloc.Kind() != AllocationPercent {
			return ErrCategoryRuleFixed
		}
	default:
		return ErrRuleSource
	}
	return nil
}

// Income is one income row of a month. FundEventID links the at-most-one
// mirrored ledger event; it is nil while the amount is zero.
type Income struct {
	ID          int64
	MonthKey    MonthKey
	IncomeDate  Date
	Description string
	AmountMinor int64
	FundEventID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i Income) Validate() error {
	if err := i.MonthKey.Validate(); err != nil {
		return err
	}
	if err := i.IncomeDate.Validate(); err != nil {
		return err
	}
	if i.AmountMinor < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Transaction is one spending row of a budget month, assigned to a category.
// Like Income it links at most one mirrored ledger event.
type Transaction struct {
	ID          int64
	MonthKey    MonthKey
	TxDate      Date
	Description string
	CategoryID  int64
	AmountMinor int64
	FundEventID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t Transaction) Validate() error {
	if err := t.MonthKey.Validate(); err != nil {
		return err
	}
	if err := t.TxDate.Validate(); err != nil {
		return err
	}
	if t.CategoryID == 0 {
		return ErrMissingCategory
	}
	if t.AmountMinor < 0 {
		return ErrInvalidAmount
	}
	return nil
}
