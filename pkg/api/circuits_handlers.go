package api

import (
	"encoding/json"
	"net/http"

	"github.com/defarm/tracectl/pkg/types"
)

type createCircuitRequest struct {
	Name             string                   `json:"name"`
	Description      string                   `json:"description"`
	DefaultNamespace string                   `json:"default_namespace"`
	Permissions      types.CircuitPermissions `json:"permissions"`
}

func (s *Server) handleCreateCircuit(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req createCircuitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	circuit, err := s.Circuits.CreateCircuit(r.Context(), req.Name, req.Description, rc.ActorID, req.DefaultNamespace, nil, req.Permissions)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, circuit)
}

type circuitMembersRequest struct {
	Message string `json:"message"`
}

// handleCircuitMembers services POST /circuits/{id}/members as a
// join-request: a prospective member asks to join, a member with
// ManageMembers approves or rejects separately through the circuit's
// operations surface.
func (s *Server) handleCircuitMembers(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req circuitMembersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	circuit, err := s.Circuits.RequestJoin(r.Context(), r.PathValue("id"), rc.ActorID, req.Message)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, circuit)
}

type circuitPushRequest struct {
	LocalID     string                 `json:"local_id"`
	Identifiers []types.Identifier     `json:"identifiers"`
	Enriched    map[string]interface{} `json:"enriched"`
}

func (s *Server) handleCircuitPush(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req circuitPushRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.Circuits.PushLocalItem(r.Context(), req.LocalID, req.Identifiers, req.Enriched, r.PathValue("id"), rc.ActorID)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOperationApprove(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	op, err := s.Circuits.ApproveOperation(r.Context(), r.PathValue("opid"), rc.ActorID)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

type operationRejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleOperationReject(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req operationRejectRequest
	if r.ContentLength != 0 {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&req) // reason is optional
	}

	op, err := s.Circuits.RejectOperation(r.Context(), r.PathValue("opid"), rc.ActorID, req.Reason)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}
