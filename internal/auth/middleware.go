package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"staffdesk/internal/api"
	"staffdesk/internal/models"
)

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// JWTAuth admits requests that carry a valid token whose session row exists,
// is not revoked and has not expired.
func JWTAuth(db *gorm.DB, iss *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				api.WriteError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := iss.Verify(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					msg = "token expired"
				}
				api.WriteError(w, http.StatusUnauthorized, msg)
				return
			}
			var sess models.Session
			if claims.JWTID == "" || db.WithContext(r.Context()).First(&sess, "jti = ?", claims.JWTID).Error != nil {
				api.WriteError(w, http.StatusUnauthorized, "session not found")
				return
			}
			if sess.RevokedAt != nil || time.Now().After(sess.ExpiresAt) {
				api.WriteError(w, http.StatusUnauthorized, "session expired/revoked")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).HasRole(role) {
				api.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
