package api

import "net/http"

func (s *Server) handleStorageHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	hist, err := s.History.GetHistory(r.Context(), r.PathValue("dfid"))
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

type storageMigrateRequest struct {
	SourceCircuitID string `json:"source_circuit_id"`
	TargetCircuitID string `json:"target_circuit_id"`
	SourceID        string `json:"source_id"`
}

// handleStorageMigrate resolves the source and target adapters from the
// two circuits' registered variants (a circuit's AdapterConfigID governs
// which adapter it registered at startup) and migrates dfid's placement
// between them.
func (s *Server) handleStorageMigrate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req storageMigrateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	source, err := s.Adapters.Get(req.SourceCircuitID)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	target, err := s.Adapters.Get(req.TargetCircuitID)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	targetVariant, _ := s.Adapters.Variant(req.TargetCircuitID)

	hist, err := s.History.Migrate(r.Context(), r.PathValue("dfid"), source, req.SourceID, target, targetVariant)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}
