package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"fondi/internal/log"
	"fondi/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "fondi.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	srv := NewServer(":0", repo, nil, logger)
	t.Cleanup(srv.limiter.Stop)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
}

func TestFundCRUD(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/funds", fundJSON{Name: "Emergency", Notes: "6 months"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create fund status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeResponse[fundJSON](t, rr)
	if created.ID == 0 {
		t.Fatalf("expected assigned id, got 0")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/funds", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list funds status=%d", rr.Code)
	}
	if funds := decodeResponse[[]fundJSON](t, rr); len(funds) != 1 || funds[0].Name != "Emergency" {
		t.Fatalf("unexpected fund list: %+v", funds)
	}

	path := "/api/funds/" + itoa(created.ID)
	rr = doJSON(t, srv, http.MethodGet, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get fund status=%d", rr.Code)
	}

	// Rename through the same upsert endpoint.
	created.Name = "Emergency fund"
	rr = doJSON(t, srv, http.MethodPost, "/api/funds", created)
	if rr.Code != http.StatusOK {
		t.Fatalf("update fund status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, path, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete fund status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, path, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted fund status=%d", rr.Code)
	}
}

func TestFundValidation(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/funds", map[string]string{"notes": "missing name"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing name status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/funds", map[string]string{"name": "ok", "bogus": "field"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/funds", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	srv.Handler.ServeHTTP(raw, req)
	if raw.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d", raw.Code)
	}
}

// seedMonth builds the reference data a budget month needs and returns the
// spending fund id.
func seedMonth(t *testing.T, srv *Server) int64 {
	t.Helper()

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", accountJSON{Name: "Checking", Currency: "EUR"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status=%d body=%s", rr.Code, rr.Body.String())
	}
	account := decodeResponse[accountJSON](t, rr)

	rr = doJSON(t, srv, http.MethodPost, "/api/funds", fundJSON{Name: "Spending"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create fund status=%d body=%s", rr.Code, rr.Body.String())
	}
	fund := decodeResponse[fundJSON](t, rr)

	rr = doJSON(t, srv, http.MethodPost, "/api/assets", assetJSON{
		FundID: fund.ID, AccountID: account.ID, Name: "Cash EUR",
		Kind: "CASH", Cash: &cashJSON{Currency: "EUR"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create asset status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/categories", categoryJSON{Name: "Groceries"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/budgets", budgetJSON{
		BudgetMonthKey: "2025-03", IncomeMonthKey: "2025-03",
		CapMinor: 100000, SpendingFundID: fund.ID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	return fund.ID
}

func TestBudgetMonthFlow(t *testing.T) {
	srv := newTestServer(t)
	fundID := seedMonth(t, srv)

	rr := doJSON(t, srv, http.MethodPost, "/api/incomes", incomeJSON{
		MonthKey: "2025-03", IncomeDate: "2025-03-01", Description: "Salary", AmountMinor: 150000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create income status=%d body=%s", rr.Code, rr.Body.String())
	}
	income := decodeResponse[incomeJSON](t, rr)
	if income.FundEventID == nil || *income.FundEventID == "" {
		t.Fatalf("income not linked to a ledger event: %+v", income)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", transactionJSON{
		MonthKey: "2025-03", TxDate: "2025-03-07", Description: "Weekly shop",
		CategoryID: 1, AmountMinor: 4550,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budgets/2025-03/report", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", rr.Code, rr.Body.String())
	}
	report := decodeResponse[monthReportJSON](t, rr)
	if report.TotalIncomeMinor != 150000 {
		t.Fatalf("TotalIncomeMinor = %d", report.TotalIncomeMinor)
	}
	if report.SpendablePoolMinor != 100000 {
		t.Fatalf("SpendablePoolMinor = %d", report.SpendablePoolMinor)
	}
	if report.SpentTotalMinor != 4550 {
		t.Fatalf("SpentTotalMinor = %d", report.SpentTotalMinor)
	}
	if report.SurplusBaseMinor != 50000 {
		t.Fatalf("SurplusBaseMinor = %d", report.SurplusBaseMinor)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/funds/"+itoa(fundID)+"/overview", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status=%d body=%s", rr.Code, rr.Body.String())
	}
	overview := decodeResponse[fundOverviewJSON](t, rr)
	if overview.NetMoneyMinor != 145450 {
		t.Fatalf("NetMoneyMinor = %d", overview.NetMoneyMinor)
	}
}

func TestBudgetOverAllocationRejected(t *testing.T) {
	srv := newTestServer(t)
	seedMonth(t, srv)

	rr := doJSON(t, srv, http.MethodGet, "/api/budgets/2025-03", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get budget status=%d", rr.Code)
	}
	budget := decodeResponse[budgetJSON](t, rr)

	// No income yet, so the spendable pool is zero and any fixed line
	// overshoots it.
	budget.Lines = []budgetLineJSON{{CategoryID: 1, Alloc: allocationJSON{Kind: "FIXED", AmountMinor: 40000}}}
	rr = doJSON(t, srv, http.MethodPost, "/api/budgets", budget)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-allocated budget status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMissingBudgetIs404(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/budgets/2030-01", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/budgets/not-a-month", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed month status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
