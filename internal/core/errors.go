package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidMonthKey   = errors.New("invalid month key")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long (max 120 characters)")
	ErrInvalidCurrency   = errors.New("currency must be a three-letter uppercase code")
	ErrInvalidPercent    = errors.New("percent must be between 0 and 1")
	ErrPercentSum        = errors.New("percent allocations exceed 100%")
	ErrMissingOwner      = errors.New("fund and account are required")
	ErrAssetVariant      = errors.New("asset must carry exactly the payload of its kind")
	ErrLiabilityVariant  = errors.New("liability must carry exactly the payload of its kind")
	ErrEmptyTicker       = errors.New("stock asset requires a ticker")
	ErrEmptyCounterparty = errors.New("note asset requires a counterparty")
	ErrInvalidDueDay     = errors.New("due day must be between 1 and 31")
	ErrLineTarget        = errors.New("line must target exactly one of asset or liability")
	ErrLineKind          = errors.New("line kind does not match populated delta or target")
	ErrMissingEventType  = errors.New("event type is required")
	ErrMissingCategory   = errors.New("category is required")
	ErrRuleCategory      = errors.New("surplus rules must not name a category")
	ErrCategoryRuleFixed = errors.New("category rules must use percent allocation")
	ErrRuleSource        = errors.New("rule source must be SURPLUS or CATEGORY")
	ErrNegativeFee       = errors.New("fee must not be negative")
	ErrAllocationVariant = errors.New("allocation must be fixed or percent, not both")
	ErrTypeMismatch      = errors.New("asset is not a cash asset")
	ErrFundMismatch      = errors.New("asset belongs to a different fund")
	ErrAlreadyHandled    = errors.New("distribution already handled")
	ErrNoRules           = errors.New("no distribution rules configured")
	ErrNoSurplus         = errors.New("no surplus to distribute")
)

// NotFoundError wraps ErrNotFound with the entity and id a caller asked for.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// LineReuseError is returned when an event upsert asks to take over a line id
// that currently belongs to a different event.
type LineReuseError struct {
	LineID       string
	OwnerEventID string
}

func (e *LineReuseError) Error() string {
	return fmt.Sprintf("line %s already belongs to event %s", e.LineID, e.OwnerEventID)
}

// OverAllocationError reports exactly how far an allocation overshoots its
// pool so the caller can correct the input.
type OverAllocationError struct {
	Scope       string // "budget", "surplus", or the category name
	OverByMinor int64
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("%s over-allocated by %s", e.Scope, FormatMinor(e.OverByMinor))
}

// AmbiguousCashAssetError is returned when a fund holds more than one cash
// asset and no explicit asset was given.
type AmbiguousCashAssetError struct {
	FundID int64
	Count  int
}

func (e *AmbiguousCashAssetError) Error() string {
	return fmt.Sprintf("fund %d has %d cash assets, specify one explicitly", e.FundID, e.Count)
}
