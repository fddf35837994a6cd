package http

import (
	"net/http"
)

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	key, err := queryMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	incomes, err := s.repo.ListIncomesByMonth(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]incomeJSON, 0, len(incomes))
	for _, in := range incomes {
		out = append(out, incomeToJSON(in))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveIncome(w http.ResponseWriter, r *http.Request) {
	var payload incomeJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	income, err := payload.toCore()
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.rowSync.SaveIncome(r.Context(), income)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, incomeToJSON(saved))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.rowSync.DeleteIncome(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	key, err := queryMonthKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.repo.ListTransactionsByMonth(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionToJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := payload.toCore()
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.rowSync.SaveTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, transactionToJSON(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.rowSync.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
