package middleware

import (
	"net/http"
	"regexp"

	"github.com/MrEthical07/identity"
	"github.com/oklog/ulid/v2"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

var correlationPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// CorrelationID propagates a caller-supplied correlation id or mints a
// ULID, and echoes it on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if !correlationPattern.MatchString(id) {
			id = ulid.Make().String()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(identity.WithCorrelationID(r.Context(), id)))
	})
}
