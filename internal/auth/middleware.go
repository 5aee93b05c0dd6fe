package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type contextKey struct{}

var identityKey contextKey

// IdentityFrom returns the identity the middleware resolved for this
// request, if any.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}

// Middleware resolves "Authorization: Bearer <token>" into an Identity on
// the request context. When required is true, requests without a valid token
// are rejected with 401; otherwise they proceed anonymously. The token's
// user must still exist, so a deleted account invalidates its tokens.
func Middleware(tokens *TokenManager, db *sql.DB, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				if required {
					unauthorized(w, "authentication required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			user, err := store.GetUserByID(r.Context(), db, claims.UserID)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			identity := models.Identity{ID: user.ID, Role: user.Role}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
