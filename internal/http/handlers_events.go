package http

import (
	"net/http"

	"fondi/internal/core"
)

func (s *Server) handleUpsertEvent(w http.ResponseWriter, r *http.Request) {
	var payload eventJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseISODate(payload.EventDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ev := core.FundEvent{
		ID:          payload.ID,
		EventTypeID: payload.EventTypeID,
		EventDate:   date,
		Memo:        payload.Memo,
	}
	lines := make([]core.FundEventLine, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		lines = append(lines, l.toCore())
	}

	stored, storedLines, err := s.repo.UpsertEvent(r.Context(), ev, lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, eventToJSON(stored, storedLines))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ev, lines, err := s.repo.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventToJSON(ev, lines))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.repo.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
