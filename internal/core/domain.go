package core

import (
	"strings"
	"time"
)

// Fund is a logical pool of value; positions in different funds never mix.
type Fund struct {
	ID        int64
	Name      string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (f Fund) Validate() error {
	return validateName(f.Name)
}

// Account is a physical custodian location (a bank, a broker, a wallet).
// Its currency seeds auto-created cash assets.
type Account struct {
	ID        int64
	Name      string
	Currency  string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if len(a.Currency) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range a.Currency {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

// Category is a spending category referenced by budget lines and transactions.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Category) Validate() error {
	return validateName(c.Name)
}

// EventType classifies fund events. A few names are well known to the
// engines; they are seeded by migration but resolved by name at runtime.
type EventType struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t EventType) Validate() error {
	return validateName(t.Name)
}

// Event type names the services depend on.
const (
	EventTypeBudgetDistribution = "BUDGET_DISTRIBUTION"
	EventTypeIncome             = "INCOME"
	EventTypeBudgetTransaction  = "BUDGET_TRANSACTION"
)

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 120 {
		return ErrNameTooLong
	}
	return nil
}
