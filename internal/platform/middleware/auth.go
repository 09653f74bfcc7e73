package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"registrar/pkg/requestcontext"
)

type contextKeyActor struct{}

// ContextKeyActor is exported for handlers that need the authenticated actor.
var ContextKeyActor = contextKeyActor{}

// GetActor retrieves the authenticated subject from the context.
func GetActor(ctx context.Context) string {
	actor, ok := ctx.Value(ContextKeyActor).(string)
	if !ok {
		return ""
	}
	return actor
}

// RequireAuth validates a Bearer JWT signed with the shared HS256 key and
// stores the token subject in the request context.
func RequireAuth(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token")
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(signingKey), nil
			})
			if err != nil || !parsed.Valid {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token", "error", err)
				unauthorized(w, "Invalid or expired token")
				return
			}

			subject := ""
			if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
				subject, _ = claims.GetSubject()
			}

			ctx := context.WithValue(r.Context(), ContextKeyActor, subject)
			ctx = requestcontext.WithActor(ctx, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
