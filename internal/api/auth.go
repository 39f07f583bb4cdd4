package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/medbook/medbook/internal/account"
)

// AuthMiddleware parses the Bearer token and stores the actor on the
// request context. Requests without a valid token are rejected.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header with a Bearer token is required")
				return
			}

			actor, err := account.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor retrieves the authenticated actor from context.
func GetActor(ctx context.Context) (*account.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(*account.Actor)
	return actor, ok
}

// RequireRole gates a route to the given roles.
func RequireRole(roles ...account.Role) func(http.Handler) http.Handler {
	allowed := make(map[account.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
				return
			}
			if !allowed[actor.Role] {
				writeError(w, http.StatusForbidden, "permission_denied", "role is not allowed to perform this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
