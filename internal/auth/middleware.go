package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/inkwell-cms/inkwell/internal/platform/httpx"
	"github.com/inkwell-cms/inkwell/internal/shared"
)

type userContextKey struct{}

// ContextWithUser stores the authenticated user in context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user, nil when absent.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// RequireUser validates the session cookie and stashes the user in the
// request context. Requests without a live session get 401.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.service.Validate(r.Context(), sessionToken(r))
		if err != nil {
			h.logger.Error("validate session", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if user == nil {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		ctx := ContextWithUser(r.Context(), user)
		ctx = shared.ContextWithPrincipal(ctx, &shared.Principal{UserID: user.ID, Email: user.Email, Role: user.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on the role table. It assumes RequireUser
// ran earlier in the chain.
func (h *Handler) RequirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !h.service.HasPermission(user, action) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
