// Package requesttime captures a single "now" per HTTP request so that audit
// events, credential nbf/exp and stored check results agree on time.
package requesttime

import (
	"context"
	"net/http"
	"time"

	"permitcheck/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Now returns the request-scoped time, or the wall clock outside of a request.
func Now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx)
}
