package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

func WithAuthMiddleware(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := GetBearerToken(r.Header)
		if err != nil {
			response.RespondWithError(w, http.StatusUnauthorized, "Unauthorized", err)
			return
		}

		userID, err := ValidateJWT(token, secret)
		if err != nil {
			response.RespondWithError(w, http.StatusUnauthorized, "Invalid Token", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
