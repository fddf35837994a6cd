package http

import (
	"net/http"

	"fondi/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.repo.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		lines, err := s.repo.ListBudgetLines(r.Context(), b.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, budgetToJSON(b, lines))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var payload budgetJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	budget, lines := payload.toCore()
	saved, err := s.budgets.SaveBudget(r.Context(), budget, lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	savedLines, err := s.repo.ListBudgetLines(r.Context(), saved.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, budgetToJSON(saved, savedLines))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	key, err := pathMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.repo.GetBudgetByMonthKey(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lines, err := s.repo.ListBudgetLines(r.Context(), budget.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetToJSON(budget, lines))
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	key, err := pathMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.budgets.Report(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monthReportToJSON(report))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	key, err := pathMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.repo.GetBudgetByMonthKey(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rules, err := s.repo.ListRulesByBudget(r.Context(), budget.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]ruleJSON, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleToJSON(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	key, err := pathMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := s.repo.GetBudgetByMonthKey(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload ruleJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertRule(r.Context(), payload.toCore(budget.ID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, ruleToJSON(saved))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteRule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type distributionRunRequest struct {
	Mode  string `json:"mode" validate:"required,oneof=SURPLUS LEFTOVERS ALL"`
	Force bool   `json:"force"`
}

type distributionRunResponse struct {
	SurplusEventID    string  `json:"surplusEventId,omitempty"`
	SurplusMinor      int64   `json:"surplusMinor"`
	LeftoversEventID  string  `json:"leftoversEventId,omitempty"`
	LeftoversMinor    int64   `json:"leftoversMinor"`
	OverageMinor      int64   `json:"overageMinor"`
	SkippedCategories []int64 `json:"skippedCategories,omitempty"`
}

func (s *Server) handleDistributionRun(w http.ResponseWriter, r *http.Request) {
	key, err := pathMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload distributionRunRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.engine.Run(r.Context(), key, services.RunMode(payload.Mode), payload.Force)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionRunResponse{
		SurplusEventID:    res.SurplusEventID,
		SurplusMinor:      res.SurplusMinor,
		LeftoversEventID:  res.LeftoversEventID,
		LeftoversMinor:    res.LeftoversMinor,
		OverageMinor:      res.OverageMinor,
		SkippedCategories: res.SkippedCategories,
	})
}

type distributionUndoRequest struct {
	Mode string `json:"mode" validate:"required,oneof=SURPLUS LEFTOVERS ALL"`
}

func (s *Server) handleDistributionUndo(w http.ResponseWriter, r *http.Request) {
	key, err := pathMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload distributionUndoRequest
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := s.engine.Undo(r.Context(), key, services.RunMode(payload.Mode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"eventsDeleted": deleted})
}
