package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/defarm/tracectl/pkg/types"
)

type appendEventRequest struct {
	DFID       string                 `json:"dfid"`
	Type       types.EventType        `json:"type"`
	Source     string                 `json:"source"`
	Metadata   map[string]interface{} `json:"metadata"`
	Visibility types.EventVisibility  `json:"visibility"`
}

func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req appendEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	source := req.Source
	if source == "" {
		source = rc.ActorID
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = types.VisibilityPrivate
	}

	evt := &types.Event{
		EventID:    uuid.NewString(),
		DFID:       req.DFID,
		Type:       req.Type,
		Timestamp:  time.Now().UTC(),
		Source:     source,
		Metadata:   req.Metadata,
		Visibility: visibility,
	}
	if err := s.Events.Emit(r.Context(), evt); err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

func (s *Server) handleEventsByItem(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	viewer := types.ViewContext{RequesterID: rc.ActorID}
	evts, err := s.Events.ByDFID(r.Context(), r.PathValue("dfid"), viewer)
	if err != nil {
		WriteEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evts)
}
