package core

import "testing"

func TestParseMonthKey(t *testing.T) {
	if _, err := ParseMonthKey("2025-03"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, bad := range []string{"", "2025", "2025-13", "2025-3", "march"} {
		if _, err := ParseMonthKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestMonthKeyNext(t *testing.T) {
	cases := []struct{ in, want MonthKey }{
		{"2025-01", "2025-02"},
		{"2025-12", "2026-01"},
	}
	for i, tc := range cases {
		if got := tc.in.Next(); got != tc.want {
			t.Fatalf("case %d: %s.Next() = %s, want %s", i, tc.in, got, tc.want)
		}
	}
}

func TestMonthKeyDates(t *testing.T) {
	k := MonthKey("2024-02")
	if got := k.FirstDate().ISO(); got != "2024-02-01" {
		t.Fatalf("first date = %s", got)
	}
	if got := k.LastDate().ISO(); got != "2024-02-29" {
		t.Fatalf("last date = %s", got)
	}
	if got := MonthKey("2025-04").LastDate().ISO(); got != "2025-04-30" {
		t.Fatalf("last date = %s", got)
	}
}

func TestMonthOf(t *testing.T) {
	d, err := ParseISODate("2025-07-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := MonthOf(d); got != "2025-07" {
		t.Fatalf("MonthOf = %s", got)
	}
}
