package api

import (
	"encoding/base64"
	"net/http"

	"github.com/defarm/tracectl/pkg/types"
)

type createReceiptRequest struct {
	Data        string             `json:"data"`
	Identifiers []types.Identifier `json:"identifiers"`
}

type createReceiptResponse struct {
	Receipt *types.Receipt       `json:"receipt"`
	Entry   *types.DataLakeEntry `json:"entry"`
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req createReceiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		WriteBadRequest(w, "data must be base64-encoded")
		return
	}

	receipt, entry, err := s.Receipts.Create(r.Context(), data, req.Identifiers)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createReceiptResponse{Receipt: receipt, Entry: entry})
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	receipt, err := s.Receipts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type verifyReceiptRequest struct {
	Data string `json:"data"`
}

func (s *Server) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req verifyReceiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		WriteBadRequest(w, "data must be base64-encoded")
		return
	}

	result, err := s.Receipts.Verify(r.Context(), r.PathValue("id"), data)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSearchReceipts implements GET /receipts/search/{key|value|identifier},
// read as query parameters (namespace, key, value) rather than a
// three-way path split, since any subset may be supplied together.
func (s *Server) handleSearchReceipts(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	q := r.URL.Query()
	results, err := s.Receipts.Search(r.Context(), q.Get("namespace"), q.Get("key"), q.Get("value"))
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
