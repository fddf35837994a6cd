package http

import (
	"net/http"

	"fondi/internal/core"
)

func (s *Server) handleListFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := s.repo.ListFunds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]fundJSON, 0, len(funds))
	for _, f := range funds {
		out = append(out, fundToJSON(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	fund, err := s.repo.GetFund(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fundToJSON(fund))
}

func (s *Server) handleUpsertFund(w http.ResponseWriter, r *http.Request) {
	var payload fundJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertFund(r.Context(), payload.toCore())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, fundToJSON(saved))
}

func (s *Server) handleDeleteFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteFund(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountToJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertAccount(r.Context(), payload.toCore())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, accountToJSON(saved))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryToJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertCategory(r.Context(), core.Category{ID: payload.ID, Name: payload.Name})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, categoryToJSON(saved))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEventTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.repo.ListEventTypes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]eventTypeJSON, 0, len(types))
	for _, t := range types {
		out = append(out, eventTypeJSON{ID: t.ID, Name: t.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
