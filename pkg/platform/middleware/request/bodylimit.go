package request

import (
	"net/http"
)

// BodyLimit caps request bodies with http.MaxBytesReader. Reads past the
// limit fail, which the JSON decoder surfaces as bad_json. Apply it before
// any handler decodes a body.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
