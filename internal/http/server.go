// Package http exposes the ledger, budgets and distribution engine as a
// JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"fondi/internal/amqp"
	"fondi/internal/log"
	"fondi/internal/middleware/ratelimit"
	"fondi/internal/middleware/security"
	"fondi/internal/middleware/trace"
	"fondi/internal/services"
	"fondi/internal/storage"
)

type Server struct {
	*http.Server

	repo     *storage.Repository
	budgets  *services.BudgetService
	engine   *services.DistributionEngine
	rowSync  *services.RowSync
	overview *services.OverviewService
	limiter  *ratelimit.Limiter
	logger   *log.Logger
}

func NewServer(addr string, repo *storage.Repository, amqpClient *amqp.Client, logger *log.Logger) *Server {
	s := &Server{
		repo:     repo,
		budgets:  services.NewBudgetService(repo),
		engine:   services.NewDistributionEngine(repo, amqpClient),
		rowSync:  services.NewRowSync(repo, amqpClient),
		overview: services.NewOverviewService(repo),
		limiter:  ratelimit.NewLimiter(300, time.Minute),
		logger:   logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	clientIP := security.NewClientIP()
	handler := log.Middleware(s.logger)(mux)
	handler = trace.Middleware(s.logger)(handler)
	handler = s.limiter.Middleware(clientIP.Extract)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	s.Server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/funds", s.handleListFunds)
	mux.HandleFunc("POST /api/funds", s.handleUpsertFund)
	mux.HandleFunc("GET /api/funds/{id}", s.handleGetFund)
	mux.HandleFunc("DELETE /api/funds/{id}", s.handleDeleteFund)
	mux.HandleFunc("GET /api/funds/{id}/assets", s.handleListFundAssets)
	mux.HandleFunc("GET /api/funds/{id}/liabilities", s.handleListFundLiabilities)
	mux.HandleFunc("GET /api/funds/{id}/overview", s.handleFundOverview)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleUpsertAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleUpsertCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/event-types", s.handleListEventTypes)

	mux.HandleFunc("POST /api/assets", s.handleUpsertAsset)
	mux.HandleFunc("GET /api/assets/{id}", s.handleGetAsset)
	mux.HandleFunc("DELETE /api/assets/{id}", s.handleDeleteAsset)
	mux.HandleFunc("GET /api/assets/{id}/balance", s.handleAssetBalance)

	mux.HandleFunc("POST /api/liabilities", s.handleUpsertLiability)
	mux.HandleFunc("GET /api/liabilities/{id}", s.handleGetLiability)
	mux.HandleFunc("DELETE /api/liabilities/{id}", s.handleDeleteLiability)
	mux.HandleFunc("GET /api/liabilities/{id}/balance", s.handleLiabilityBalance)

	mux.HandleFunc("POST /api/events", s.handleUpsertEvent)
	mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleUpsertBudget)
	mux.HandleFunc("GET /api/budgets/{month}", s.handleGetBudget)
	mux.HandleFunc("GET /api/budgets/{month}/report", s.handleMonthReport)
	mux.HandleFunc("GET /api/budgets/{month}/rules", s.handleListRules)
	mux.HandleFunc("POST /api/budgets/{month}/rules", s.handleUpsertRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleDeleteRule)
	mux.HandleFunc("POST /api/budgets/{month}/distribution/run", s.handleDistributionRun)
	mux.HandleFunc("POST /api/budgets/{month}/distribution/undo", s.handleDistributionUndo)

	mux.HandleFunc("GET /api/incomes", s.handleListIncomes)
	mux.HandleFunc("POST /api/incomes", s.handleSaveIncome)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.handleDeleteIncome)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleSaveTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListEventTypes(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
