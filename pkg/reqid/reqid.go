// Package reqid generates correlation ids and carries them in a context.
//
// HTTP requests get an id from the X-Request-ID header (or a fresh random
// one); Telegram updates get one derived from the update id, so a bot
// update and the order transitions it triggers share one id in the logs:
//
//	ctx = reqid.WithValue(ctx, reqid.ForUpdate(update.UpdateID))
//	id := reqid.FromCtx(ctx)
package reqid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type ctxKey struct{}

// Header is the HTTP header name used to propagate the request ID.
const Header = "X-Request-ID"

// New generates a random UUIDv4 id.
func New() string {
	return uuid.NewString()
}

// ForUpdate derives a stable id from a Telegram update id.
func ForUpdate(updateID int) string {
	return "upd-" + strconv.Itoa(updateID)
}

// WithValue stores id in ctx and returns the new context.
func WithValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromCtx extracts the id from ctx, or "" if none is present.
func FromCtx(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// Middleware reuses an upstream X-Request-ID or generates one, echoes it in
// the response and stores it in the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if id == "" {
				id = New()
			}

			w.Header().Set(Header, id)
			next.ServeHTTP(w, r.WithContext(WithValue(r.Context(), id)))
		})
	}
}
