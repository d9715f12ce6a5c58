package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// requestContext carries the client address into the service so commits are
// recorded with it.
func requestContext(r *http.Request) context.Context {
	return core.ContextWithClientIP(r.Context(), clientIP(r))
}
