package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-shop-api.git/internal/auth"
	"github.com/ariefcatur/go-shop-api.git/internal/users"
)

type ctxKey int

const claimsKey ctxKey = 0

// BearerAuth validates the Authorization header and puts the token claims into
// the request context. Expired and malformed tokens get distinct messages.
func BearerAuth(maker *auth.Maker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "Token tidak ditemukan")
				return
			}
			claims, err := maker.VerifyToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					writeMessage(w, http.StatusUnauthorized, "Token expired")
					return
				}
				writeMessage(w, http.StatusUnauthorized, "Token tidak valid")
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin must run after BearerAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil {
			writeMessage(w, http.StatusUnauthorized, "Token tidak ditemukan")
			return
		}
		if claims.Role != users.RoleAdmin {
			writeMessage(w, http.StatusForbidden, "Akses khusus admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFrom returns nil when the request was not authenticated.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}
