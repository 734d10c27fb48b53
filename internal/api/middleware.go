package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader is both the inbound passthrough header and the header
// echoed on every response.
const requestIDHeader = "X-Request-ID"

type ctxKeyRequestID struct{}

// RequestID tags every request with an ID: the caller's X-Request-ID
// when present, a fresh UUID otherwise. The ID is echoed on the response
// and carried in the request context for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), ctxKeyRequestID{}, id)))
	})
}

// RequestIDFromContext returns the request ID set by the RequestID
// middleware, or "" outside of one.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}
