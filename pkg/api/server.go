package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/defarm/tracectl/pkg/auth"
	"github.com/defarm/tracectl/pkg/capability"
	"github.com/defarm/tracectl/pkg/circuits"
	"github.com/defarm/tracectl/pkg/events"
	"github.com/defarm/tracectl/pkg/history"
	"github.com/defarm/tracectl/pkg/items"
	"github.com/defarm/tracectl/pkg/receipts"
	"github.com/defarm/tracectl/pkg/snapshot"
	"github.com/defarm/tracectl/pkg/storageadapter"
)

// Server wires every engine into the HTTP surface spec.md §6 names. It
// is the only place in this module that imports net/http alongside the
// engine packages; engines themselves stay router-agnostic.
type Server struct {
	Gate *capability.Gate

	Items     *items.Engine
	ItemStore items.Store
	Events    *events.Engine
	Circuits  *circuits.Engine
	History   *history.Engine
	Snapshots *snapshot.Engine
	Receipts  *receipts.Engine
	Adapters  *storageadapter.Registry

	Idempotency IdempotencyStorer
	Log         *slog.Logger
}

// Gate authenticates the request and returns a RequestContext, or writes
// the appropriate Problem Detail and returns ok=false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*capability.RequestContext, bool) {
	rc, err := s.Gate.Authenticate(r.Context(), r)
	if err != nil {
		WriteEngineError(w, r, err)
		return nil, false
	}
	return rc, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteBadRequest(w, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Router builds the complete ServeMux for spec.md §6's endpoint table,
// wrapped in the idempotency middleware for mutating methods.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /receipts", s.handleCreateReceipt)
	mux.HandleFunc("GET /receipts/search", s.handleSearchReceipts)
	mux.HandleFunc("GET /receipts/{id}", s.handleGetReceipt)
	mux.HandleFunc("POST /receipts/{id}/verify", s.handleVerifyReceipt)

	mux.HandleFunc("POST /items", s.handleCreateItem)
	mux.HandleFunc("GET /items/{dfid}", s.handleGetItem)
	mux.HandleFunc("PUT /items/{dfid}", s.handleEnrichItem)
	mux.HandleFunc("POST /items/{dfid}/merge", s.handleMergeItem)
	mux.HandleFunc("POST /items/{dfid}/split", s.handleSplitItem)
	mux.HandleFunc("POST /items/{dfid}/deprecate", s.handleDeprecateItem)

	mux.HandleFunc("POST /events", s.handleAppendEvent)
	mux.HandleFunc("GET /events/item/{dfid}", s.handleEventsByItem)

	mux.HandleFunc("POST /circuits", s.handleCreateCircuit)
	mux.HandleFunc("POST /circuits/{id}/members", s.handleCircuitMembers)
	mux.HandleFunc("POST /circuits/{id}/push", s.handleCircuitPush)
	mux.HandleFunc("POST /circuits/{id}/operations/{opid}/approve", s.handleOperationApprove)
	mux.HandleFunc("POST /circuits/{id}/operations/{opid}/reject", s.handleOperationReject)

	mux.HandleFunc("GET /storage/history/{dfid}", s.handleStorageHistory)
	mux.HandleFunc("POST /storage/history/{dfid}/migrate", s.handleStorageMigrate)

	mux.HandleFunc("GET /snapshots/{entity_type}/{entity_id}", s.handleSnapshotChain)

	var handler http.Handler = mux
	handler = IdempotencyMiddleware(s.Idempotency)(handler)
	handler = auth.CORSMiddleware(nil)(handler)
	handler = auth.RequestIDMiddleware(handler)
	return handler
}
