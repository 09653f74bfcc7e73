package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"registrar/pkg/requestcontext"
)

// RequestMeta stamps each request with an id and its receive time so every
// row written during the request carries consistent provenance.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
