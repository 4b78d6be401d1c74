package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pratik-mahalle/watchpost/internal/auth"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

const (
	// ActorIDKey holds the id of the authenticated operator
	ActorIDKey ContextKey = "actorID"
	// ActorRoleKey holds the operator role
	ActorRoleKey ContextKey = "actorRole"
)

// Authenticate rejects requests without a valid bearer token and stores the
// operator identity on the request context
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				utils.WriteError(w, errors.Unauthorized("Missing authentication token"))
				return
			}

			claims, err := auth.ParseClaims(tokenStr, jwtSecret)
			if err != nil {
				utils.WriteError(w, errors.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), ActorIDKey, claims.UserID)
			ctx = context.WithValue(ctx, ActorRoleKey, claims.Role)
			AddLogField(w, "actor_id", claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only operators holding one of roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(ActorRoleKey).(string)
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteError(w, errors.New(errors.ErrCodeUnauthorized, "Insufficient role", http.StatusForbidden))
		})
	}
}

// GetActorID extracts the authenticated operator id
func GetActorID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(ActorIDKey).(int64)
	return id, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
