package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/eventimport/internal/core"
	"github.com/JonMunkholm/eventimport/internal/web/templates"
)

// handleReviewPage renders the review table. HTMX requests get only the
// table fragment.
func (s *Server) handleReviewPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := rowFilter(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	sess, err := s.service.Session(chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	view := sess.View(filter)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Header.Get("HX-Request") == "true" {
		templates.ReviewTable(view).Render(r.Context(), w)
		return
	}

	event, err := s.service.GetEvent(r.Context(), view.EventID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	templates.ReviewPage(event, view, templates.ReviewFilters{
		Room:   q.Get("room"),
		Status: q.Get("status"),
		Query:  q.Get("q"),
	}).Render(r.Context(), w)
}

type healthResponse struct {
	Status  string             `json:"status"`
	Store   string             `json:"store"`
	Imports core.LimiterStatus `json:"imports"`
}

// handleHealth reports store reachability and decode slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Store:   "ok",
		Imports: s.service.Limiter().Status(),
	}
	status := http.StatusOK
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, r, status, resp)
}
