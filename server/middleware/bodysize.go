package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/util"
)

const defaultMaxBodySize = 110 << 20

// BodySizeLimit caps request bodies at maxSize ("110MB", "512KB"). A
// declared Content-Length over the cap is answered with 413 right away;
// otherwise handlers see the cap as a read error once it is crossed.
func BodySizeLimit(maxSize string) Middleware {
	limit := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				ae := apperrors.PayloadTooLarge(limit)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(ae.HTTPStatus)
				_ = json.NewEncoder(w).Encode(ae.ToResponse())
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
