package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/eventimport/internal/core"
	"github.com/JonMunkholm/eventimport/internal/logging"
)

// multipartMemory is how much of a form is buffered in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// formOverhead allows for multipart framing and the defaults field on top of
// the file itself.
const formOverhead = 64 << 10

// rowResponse answers row mutations. Import is included because one edit can
// change the status of other rows.
type rowResponse struct {
	Row    *core.UploadedSessionRow `json:"row,omitempty"`
	Import core.ImportView          `json:"import"`
}

// handleStartImport accepts a multipart upload with a "file" part and an
// optional "defaults" JSON field.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	maxBytes := s.cfg.Import.MaxFileSize

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, fmt.Errorf("%w: limit is %d bytes", errFileTooBig, maxBytes))
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	var defaults core.SessionDefaults
	if raw := r.FormValue("defaults"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &defaults); err != nil {
			respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidDefaults, err))
			return
		}
	}

	sess, err := s.service.StartImport(requestContext(r), core.StartImportParams{
		EventID:  eventID,
		FileName: header.Filename,
		Reader:   file,
		Defaults: defaults,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "import_id", sess.ID, "event_id", eventID).
		Debug("upload accepted", "bytes", header.Size)
	w.Header().Set("Location", "/api/imports/"+sess.ID)
	writeJSON(w, r, http.StatusCreated, sess.View(nil))
}

// handleGetImport returns the ledger, optionally filtered by room, status
// and q. Issues and the summary always cover every row.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	filter, err := rowFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	sess, err := s.service.Session(chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess.View(filter))
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var req rowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	importID := chi.URLParam(r, "importID")
	row, err := s.service.AddRow(r.Context(), importID, req.patch())
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.writeRowResponse(w, r, http.StatusCreated, importID, &row)
}

func (s *Server) handleEditRow(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req rowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	importID := chi.URLParam(r, "importID")
	row, err := s.service.EditRow(r.Context(), importID, rowID, req.patch())
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.writeRowResponse(w, r, http.StatusOK, importID, &row)
}

func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	rowID, err := rowIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	importID := chi.URLParam(r, "importID")
	if err := s.service.RemoveRow(r.Context(), importID, rowID); err != nil {
		respondError(w, r, err)
		return
	}
	s.writeRowResponse(w, r, http.StatusOK, importID, nil)
}

func (s *Server) writeRowResponse(w http.ResponseWriter, r *http.Request, status int, importID string, row *core.UploadedSessionRow) {
	sess, err := s.service.Session(importID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, status, rowResponse{Row: row, Import: sess.View(nil)})
}

// handleCommit merges the accepted rows into the event.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Commit(requestContext(r), chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleCancelImport discards an import under review.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Cancel(r.Context(), chi.URLParam(r, "importID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
