package google

import (
	"context"
	"strings"
	"testing"

	"fondi/internal/config"
	"fondi/internal/core"
	"fondi/internal/services"
)

func TestNewFromConfig_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromConfig_InvalidClientJSON(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID:   "test-id",
		GoogleOAuthClientJSON: `invalid-json`,
		GoogleOAuthTokenJSON:  `{"access_token":"test"}`,
	}
	_, err := NewFromConfig(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error with invalid client JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

func TestNewFromConfig_MissingToken(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID:   "test-id",
		GoogleOAuthClientJSON: `{"installed":{"client_id":"x","client_secret":"y","redirect_uris":["http://localhost"]}}`,
	}
	_, err := NewFromConfig(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error with missing token")
	}
	if !strings.Contains(err.Error(), "token") {
		t.Errorf("expected token error, got: %v", err)
	}
}

func TestWriteMonthReport_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Budget"}
	if _, err := c.WriteMonthReport(context.Background(), services.MonthReport{}); err == nil {
		t.Fatal("expected error with uninitialized service")
	}
}

func TestReportRows(t *testing.T) {
	report := services.MonthReport{
		Budget: core.Budget{
			BudgetMonthKey: "2025-03",
			IncomeMonthKey: "2025-02",
		},
		TotalIncomeMinor:   150000,
		SpendablePoolMinor: 100000,
		PlannedTotalMinor:  40000,
		SpentTotalMinor:    4550,
		RemainingMinor:     35450,
		SurplusBaseMinor:   50000,
		Categories: []services.CategoryReport{
			{CategoryName: "Groceries", PlannedMinor: 40000, SpentMinor: 4550, LeftoverMinor: 35450},
		},
	}

	rows := reportRows(report)
	if len(rows) != 11 {
		t.Fatalf("expected 11 rows, got %d", len(rows))
	}
	if rows[0][1] != "2025-03" {
		t.Errorf("budget month cell = %v", rows[0][1])
	}
	if rows[2][1] != "1500.00" {
		t.Errorf("total income cell = %v", rows[2][1])
	}
	last := rows[len(rows)-1]
	if last[0] != "Groceries" || last[1] != "400.00" || last[2] != "45.50" || last[3] != "354.50" {
		t.Errorf("category row = %v", last)
	}
}

func TestMinorToDecimal(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		1:      "0.01",
		-1550:  "-15.50",
		123456: "1234.56",
	}
	for minor, want := range cases {
		if got := minorToDecimal(minor); got != want {
			t.Errorf("minorToDecimal(%d) = %q, want %q", minor, got, want)
		}
	}
}
