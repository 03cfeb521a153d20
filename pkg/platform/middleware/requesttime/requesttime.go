// Package requesttime pins one "now" per request. Consent validity, record
// timestamps and the consent gate all read it, so a grant made and checked
// within one request never straddles an expiry boundary.
package requesttime

import (
	"net/http"
	"time"

	"fintrust/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), time.Now().UTC())))
	})
}
