package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/eventimport/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"oversized decode", &core.ParseError{FileName: "a.csv", Err: fmt.Errorf("%w: limit is 10 bytes", core.ErrFileTooLarge)}, http.StatusRequestEntityTooLarge},
		{"oversized body", fmt.Errorf("%w: 12 bytes", errFileTooBig), http.StatusRequestEntityTooLarge},
		{"parse error mentioning size", &core.ParseError{FileName: "a.csv", Err: errors.New(`unknown column "too large"`)}, http.StatusUnprocessableEntity},
		{"no rows", &core.ParseError{FileName: "a.csv", Err: core.ErrNoRows}, http.StatusUnprocessableEntity},
		{"rate limited", errRateLimited, http.StatusTooManyRequests},
		{"bad defaults", fmt.Errorf("%w: Timezone", core.ErrInvalidDefaults), http.StatusBadRequest},
		{"missing import", fmt.Errorf("%w: x", core.ErrImportNotFound), http.StatusNotFound},
		{"blocked commit", &core.CommitBlockedError{RowIDs: []core.RowID{1}}, http.StatusConflict},
		{"stale event", fmt.Errorf("save event evt: %w", core.ErrStaleEvent), http.StatusConflict},
		{"merge failure", &core.MergeError{Reason: core.MergeOverlap}, http.StatusConflict},
		{"busy", core.ErrTooManyImports, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
