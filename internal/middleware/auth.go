package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	jwtlib "cartsync/pkg/lib/jwt"
	"cartsync/pkg/lib/logger/sl"
)

type subjectKey struct{}

// Subject returns the authenticated identity stashed by Auth: a user id
// on principal routes, a guest session id on guest routes.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// Auth verifies the bearer token and requires the given role before
// passing the request on with the token subject in its context.
func Auth(log *slog.Logger, tokens *jwtlib.Manager, role string, next http.HandlerFunc) http.HandlerFunc {
	const op = "middleware.Auth"

	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.With("op", op).Warn("Invalid token", sl.Err(err))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if claims.Role != role {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next(w, r.WithContext(WithSubject(r.Context(), claims.Subject)))
	}
}
