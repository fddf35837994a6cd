package memory

import (
	"context"
	"testing"

	"fondi/internal/core"
	"fondi/internal/services"
	ports "fondi/internal/sheets"
)

var _ ports.ReportWriter = (*Store)(nil)

func TestWriteAndReadBack(t *testing.T) {
	s := New()
	report := services.MonthReport{
		Budget:           core.Budget{BudgetMonthKey: "2025-03"},
		TotalIncomeMinor: 150000,
	}

	ref, err := s.WriteMonthReport(context.Background(), report)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if ref != "mem:2025-03" {
		t.Errorf("ref = %q", ref)
	}

	got, ok := s.Report("2025-03")
	if !ok || got.TotalIncomeMinor != 150000 {
		t.Fatalf("read back: ok=%v report=%+v", ok, got)
	}
	if _, ok := s.Report("2025-04"); ok {
		t.Error("unexpected report for month never written")
	}
}

func TestRewriteReplacesReport(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := services.MonthReport{Budget: core.Budget{BudgetMonthKey: "2025-03"}, SpentTotalMinor: 100}
	second := services.MonthReport{Budget: core.Budget{BudgetMonthKey: "2025-03"}, SpentTotalMinor: 200}
	if _, err := s.WriteMonthReport(ctx, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := s.WriteMonthReport(ctx, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, _ := s.Report("2025-03")
	if got.SpentTotalMinor != 200 {
		t.Errorf("SpentTotalMinor = %d, want 200", got.SpentTotalMinor)
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}
}
