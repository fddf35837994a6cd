package http

import (
	"net/http"
)

func (s *Server) handleListFundAssets(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	assets, err := s.repo.ListAssetsByFund(r.Context(), fundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]assetJSON, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetToJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFundLiabilities(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	liabilities, err := s.repo.ListLiabilitiesByFund(r.Context(), fundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]liabilityJSON, 0, len(liabilities))
	for _, l := range liabilities {
		out = append(out, liabilityToJSON(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFundOverview(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ov, err := s.overview.FundOverview(r.Context(), fundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fundOverviewToJSON(ov))
}

func (s *Server) handleUpsertAsset(w http.ResponseWriter, r *http.Request) {
	var payload assetJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	asset, err := payload.toCore()
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertAsset(r.Context(), asset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, assetToJSON(saved))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	asset, err := s.repo.GetAsset(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assetToJSON(asset))
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteAsset(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if _, err := s.repo.GetAsset(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	bal, err := s.repo.AssetBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"assetId":       id,
		"moneyMinor":    bal.MoneyMinor,
		"quantityMinor": bal.QuantityMinor,
	})
}

func (s *Server) handleUpsertLiability(w http.ResponseWriter, r *http.Request) {
	var payload liabilityJSON
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	liability, err := payload.toCore()
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.repo.UpsertLiability(r.Context(), liability)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if payload.ID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, liabilityToJSON(saved))
}

func (s *Server) handleGetLiability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	liability, err := s.repo.GetLiability(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, liabilityToJSON(liability))
}

func (s *Server) handleDeleteLiability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteLiability(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLiabilityBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if _, err := s.repo.GetLiability(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	bal, err := s.repo.LiabilityBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"liabilityId":  id,
		"balanceMinor": bal,
	})
}
