package httpapi

import (
	"context"
	"net/http"
	"strings"

	"transferdesk/internal/auth"
	dErrors "transferdesk/pkg/domainerrors"
)

type actorKey struct{}

// ActorFromContext retrieves the authenticated actor placed by RequireAuth.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(auth.Actor)
	return actor, ok
}

// RequireAuth validates the bearer token and attaches the actor to the
// request context. The core services receive the actor as an argument and
// never read headers themselves.
func RequireAuth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				respondError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			actor, err := authService.ActorFromToken(strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				respondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
		})
	}
}
