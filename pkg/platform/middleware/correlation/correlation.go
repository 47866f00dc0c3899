// Package correlation assigns every request a correlation id that threads
// through logs, reports and audit events.
package correlation

import (
	"net/http"

	"github.com/google/uuid"

	"accai/pkg/requestcontext"
)

// Header carries the correlation id on responses.
const Header = "X-Correlation-ID"

// Middleware assigns a fresh correlation id and echoes it in the response.
// Inbound ids are not trusted: each upload gets its own report key.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := uuid.NewString()
		w.Header().Set(Header, cid)
		ctx := requestcontext.WithCorrelationID(r.Context(), cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
