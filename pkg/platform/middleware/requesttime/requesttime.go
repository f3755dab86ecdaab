// Package requesttime pins one "now" per HTTP request so token expiry checks,
// payment timestamps and audit events inside a request agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"docufind/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
