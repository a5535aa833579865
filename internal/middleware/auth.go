package middleware

import (
	"net/http"
	"strings"

	"github.com/tumbiko/Pluto-shopping-store/internal/auth"
	"go.uber.org/zap"
)

// ValidateAuth checks the bearer token issued by the external identity
// provider and passes the user id downstream in the UserID header.
func ValidateAuth(secret string) Middleware {
	return func(h http.Handler, sugar *zap.SugaredLogger) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				sugar.Error("AUTH_SECRET is not set")
				http.Error(w, "server misconfigured", http.StatusInternalServerError)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is missing", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid token format", http.StatusUnauthorized)
				return
			}

			userID, err := auth.ValidateJWT(tokenString, secret)
			if err != nil {
				sugar.Errorw("Invalid token", "error", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			r.Header.Set("UserID", userID)

			h.ServeHTTP(w, r)
		})
	}
}
