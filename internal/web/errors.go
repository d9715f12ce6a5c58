package web

// errors.go turns service errors into responses.
//
// Every error is logged with the request id and mapped through core.MapError.
// API clients get {error, message, action, code}; pages get an alert fragment.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/eventimport/internal/core"
	"github.com/JonMunkholm/eventimport/internal/web/templates"
)

var (
	errBadRequest  = errors.New("invalid request")
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Action  string       `json:"action,omitempty"`
	Code    string       `json:"code"`
	Rows    []core.RowID `json:"rows,omitempty"` // rows blocking a commit
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var parseErr *core.ParseError
	var mergeErr *core.MergeError
	switch {
	case errors.Is(err, errFileTooBig), errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errBadRequest), errors.Is(err, errNoFile),
		errors.Is(err, core.ErrInvalidDefaults), errors.Is(err, core.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrImportNotFound), errors.Is(err, core.ErrRowNotFound),
		errors.Is(err, core.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCommitBlocked), errors.Is(err, core.ErrStaleEvent), errors.As(err, &mergeErr):
		return http.StatusConflict
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var blocked *core.CommitBlockedError
	if errors.As(err, &blocked) {
		resp.Rows = blocked.RowIDs
	}
	writeJSON(w, r, status, resp)
}

// wantsJSON reports whether the client expects a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
