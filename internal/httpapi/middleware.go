// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package httpapi

import (
	"context"
	"net/http"

	"github.com/permitgate/permitgate/internal/auth"
)

type contextKey string

const userContextKey contextKey = "httpapi.user"

// UserFromContext returns the authenticated user set by RequireRole, or nil.
func UserFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userContextKey).(*auth.User)
	return user
}

// RequireRole gates next behind an exact role match. Requests without a valid
// session get a 401 with the cookie cleared; authenticated requests whose role
// does not match get a 403 pointing at their own landing route. Role matching
// has no hierarchy: an administrator does not pass a skipper gate.
func (h *Handler) RequireRole(required auth.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := h.authenticate(w, r)
		if !ok {
			return
		}

		if !auth.Guard(required, user.Role) {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":    "access denied",
				"redirect": auth.LandingRoute(user.Role),
			})
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
