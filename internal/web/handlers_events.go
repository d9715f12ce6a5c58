package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// handleCreateEvent creates an empty event to import into.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req core.NewEvent
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	event, err := s.service.CreateEvent(requestContext(r), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/events/"+event.ID)
	writeJSON(w, r, http.StatusCreated, event)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.service.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

// handleListImports returns the event's commit history, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListImports(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.ImportRecord{}
	}
	writeJSON(w, r, http.StatusOK, records)
}
