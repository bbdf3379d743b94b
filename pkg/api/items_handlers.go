package api

import (
	"net/http"

	"github.com/defarm/tracectl/pkg/types"
)

type createItemRequest struct {
	DFID        string             `json:"dfid"`
	Identifiers []types.Identifier `json:"identifiers"`
	SourceEntry string             `json:"source_entry"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req createItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := s.Items.CreateItem(r.Context(), req.DFID, req.Identifiers, req.SourceEntry)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	item, err := s.ItemStore.Get(r.Context(), r.PathValue("dfid"))
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type enrichItemRequest struct {
	Data        map[string]interface{} `json:"data"`
	Identifiers []types.Identifier     `json:"identifiers"`
	SourceEntry string                 `json:"source_entry"`
}

// handleEnrichItem services PUT /items/{dfid}: a body carrying
// identifiers applies AddIdentifiers, a body carrying data applies
// Enrich; both may be present in the same request.
func (s *Server) handleEnrichItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req enrichItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dfid := r.PathValue("dfid")

	var item *types.Item
	var err error
	if len(req.Identifiers) > 0 {
		item, err = s.Items.AddIdentifiers(r.Context(), dfid, req.Identifiers)
		if err != nil {
			WriteEngineError(w, r, err)
			return
		}
	}
	if len(req.Data) > 0 {
		item, err = s.Items.Enrich(r.Context(), dfid, req.Data, req.SourceEntry)
		if err != nil {
			WriteEngineError(w, r, err)
			return
		}
	}
	if item == nil {
		item, err = s.ItemStore.Get(r.Context(), dfid)
		if err != nil {
			WriteEngineError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, item)
}

type mergeItemRequest struct {
	SecondaryDFID string `json:"secondary_dfid"`
}

func (s *Server) handleMergeItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req mergeItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := s.Items.Merge(r.Context(), r.PathValue("dfid"), req.SecondaryDFID)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type splitItemRequest struct {
	Identifiers []types.Identifier `json:"identifiers"`
	NewDFID     string             `json:"new_dfid"`
}

type splitItemResponse struct {
	Original *types.Item `json:"original"`
	Created  *types.Item `json:"created"`
}

func (s *Server) handleSplitItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	var req splitItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	original, created, err := s.Items.Split(r.Context(), r.PathValue("dfid"), req.Identifiers, req.NewDFID)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, splitItemResponse{Original: original, Created: created})
}

func (s *Server) handleDeprecateItem(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	item, err := s.Items.Deprecate(r.Context(), r.PathValue("dfid"))
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
