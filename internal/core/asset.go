package core

import (
	"strings"
	"time"
)

type AssetKind string

const (
	AssetCash  AssetKind = "CASH"
	AssetStock AssetKind = "STOCK"
	AssetNote  AssetKind = "NOTE"
)

// CashDetails carries the variant payload of a CASH asset.
type CashDetails struct {
	Currency string
}

// StockDetails carries the variant payload of a STOCK asset.
type StockDetails struct {
	Ticker string
}

// NoteDetails carries the variant payload of a NOTE asset (a private loan
// made to a counterparty). NOTE assets are never auto-matched across funds.
type NoteDetails struct {
	Counterparty    string
	InterestRateBps int64
	IssueDate       Date
	MaturityDate    Date
}

// Asset is a position holder inside exactly one fund and one account.
// Exactly one of Cash/Stock/Note is non-nil and must match Kind.
type Asset struct {
	ID        int64
	FundID    int64
	AccountID int64
	Name      string
	Kind      AssetKind

	Cash  *CashDetails
	Stock *StockDetails
	Note  *NoteDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Asset) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if a.FundID == 0 || a.AccountID == 0 {
		return ErrMissingOwner
	}
	set := 0
	if a.Cash != nil {
		set++
	}
	if a.Stock != nil {
		set++
	}
	if a.Note != nil {
		set++
	}
	if set != 1 {
		return ErrAssetVariant
	}
	switch a.Kind {
	case AssetCash:
		if a.Cash == nil {
			return ErrAssetVariant
		}
		if len(a.Cash.Currency) != 3 {
			return ErrInvalidCurrency
		}
	case AssetStock:
		if a.Stock == nil {
			return ErrAssetVariant
		}
		if strings.TrimSpace(a.Stock.Ticker) == "" {
			return ErrEmptyTicker
		}
	case AssetNote:
		if a.Note == nil {
			return ErrAssetVariant
		}
		if strings.TrimSpace(a.Note.Counterparty) == "" {
			return ErrEmptyCounterparty
		}
	default:
		return ErrAssetVariant
	}
	return nil
}

// InstrumentKey returns the identity used for "same asset elsewhere"
// matching: currency for cash, ticker for stock. NOTE assets have no
// instrument identity and report ok=false.
func (a Asset) InstrumentKey() (key string, ok bool) {
	switch a.Kind {
	case AssetCash:
		return "CASH:" + a.Cash.Currency, true
	case AssetStock:
		return "STOCK:" + a.Stock.Ticker, true
	default:
		return "", false
	}
}

type LiabilityKind string

const (
	LiabilityLoan   LiabilityKind = "LOAN"
	LiabilityCredit LiabilityKind = "CREDIT"
)

// LoanDetails carries the variant payload of a LOAN liability.
type LoanDetails struct {
	PrincipalMinor int64
	MaturityDate   Date
	PaymentMinor   int64
}

// CreditDetails carries the variant payload of a CREDIT liability.
type CreditDetails struct {
	LimitMinor          int64
	DueDay              int
	MinimumPaymentMinor int64
}

// Liability is an obligation inside exactly one fund and one account.
// Exactly one of Loan/Credit is non-nil and must match Kind.
type Liability struct {
	ID        int64
	FundID    int64
	AccountID int64
	Name      string
	Kind      LiabilityKind

	Loan   *LoanDetails
	Credit *CreditDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l Liability) Validate() error {
	if err := validateName(l.Name); err != nil {
		return err
	}
	if l.FundID == 0 || l.AccountID == 0 {
		return ErrMissingOwner
	}
	if (l.Loan != nil) == (l.Credit != nil) {
		return ErrLiabilityVariant
	}
	switch l.Kind {
	case LiabilityLoan:
		if l.Loan == nil {
			return ErrLiabilityVariant
		}
		if l.Loan.PrincipalMinor < 0 || l.Loan.PaymentMinor < 0 {
			return ErrInvalidAmount
		}
	case LiabilityCredit:
		if l.Credit == nil {
			return ErrLiabilityVariant
		}
		if l.Credit.LimitMinor < 0 || l.Credit.MinimumPaymentMinor < 0 {
			return ErrInvalidAmount
		}
		if l.Credit.DueDay < 1 || l.Credit.DueDay > 31 {
			return ErrInvalidDueDay
		}
	default:
		return ErrLiabilityVariant
	}
	return nil
}
