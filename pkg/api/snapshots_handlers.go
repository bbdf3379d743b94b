package api

import "net/http"

func (s *Server) handleSnapshotChain(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	chain, err := s.Snapshots.Chain(r.Context(), r.PathValue("entity_id"))
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}
