package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/beanleaf/pkg/auth"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

type claimsKey struct{}

// ClaimsFromCtx returns the token claims stored by RequireStaff.
func ClaimsFromCtx(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// bearer reads the token from the Authorization header, falling back to the
// access_token query parameter for WebSocket clients that cannot set headers.
func bearer(r *http.Request) string {
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return raw
	}
	return r.URL.Query().Get("access_token")
}

// RequireStaff accepts only requests carrying a valid staff bearer token.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			response.Unauthorized(w)
			return
		}

		claims, err := auth.ValidateToken(raw)
		if err != nil {
			logger.WithCtx(r.Context()).Debug("rejected token", "error", err)
			response.Unauthorized(w)
			return
		}
		if claims.Role != auth.RoleStaff {
			response.Forbidden(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}
