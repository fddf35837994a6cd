package core

import (
	"time"
)

// Date is a calendar date; the time-of-day part is always midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// MonthKey identifies a calendar month as "YYYY-MM".
type MonthKey string

// ParseMonthKey validates and returns a month key.
func ParseMonthKey(s string) (MonthKey, error) {
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", ErrInvalidMonthKey
	}
	return MonthKey(s), nil
}

func (k MonthKey) Validate() error {
	_, err := ParseMonthKey(string(k))
	return err
}

func (k MonthKey) month() time.Time {
	t, _ := time.Parse("2006-01", string(k))
	return t
}

// Next returns the key of the following month.
func (k MonthKey) Next() MonthKey {
	return MonthKey(k.month().AddDate(0, 1, 0).Format("2006-01"))
}

// FirstDate returns the first day of the month.
func (k MonthKey) FirstDate() Date {
	return Date{Time: k.month()}
}

// LastDate returns the last day of the month.
func (k MonthKey) LastDate() Date {
	return Date{Time: k.month().AddDate(0, 1, -1)}
}

// MonthOf returns the month key a date falls in.
func MonthOf(d Date) MonthKey {
	return MonthKey(d.Format("2006-01"))
}
