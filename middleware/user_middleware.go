package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/andrewpaige1/prepass-api/apperr"
	"github.com/andrewpaige1/prepass-api/models"
	"github.com/andrewpaige1/prepass-api/utils"
)

type contextKey string

const userKey contextKey = "user"

// UserStore makes sure a user row exists for an identity provider subject.
type UserStore interface {
	UpsertUser(ctx context.Context, authID, email string) (*models.User, error)
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user attached by SyncUserMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// SyncUserMiddleware ensures the authenticated user exists in the DB and
// attaches it to the request context.
func SyncUserMiddleware(store UserStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := utils.GetClaims(r)
			if !ok || claims.RegisteredClaims.Subject == "" {
				writeJSONError(w, http.StatusUnauthorized, "No auth subject found")
				return
			}

			email := ""
			if custom, ok := claims.CustomClaims.(*CustomClaims); ok && custom != nil {
				email = custom.Email
			}

			user, err := store.UpsertUser(r.Context(), claims.RegisteredClaims.Subject, email)
			if err != nil {
				logger.Error("failed to sync user", "subject", claims.RegisteredClaims.Subject, "error", err)
				writeJSONError(w, http.StatusInternalServerError, apperr.UserMessage(err, "Failed to sync user"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
