package main

import (
	"context"
	"net/http"
)

type contextKey string

const userKey contextKey = "user"

// Role allow-lists. Flat set membership, no hierarchy computation.
var (
	adminOnly = []string{RoleOwner, RoleAdmin}
	testerUp  = []string{RoleOwner, RoleAdmin, RoleTester}
	viewerUp  = []string{RoleOwner, RoleAdmin, RoleTester, RoleViewer}
)

func currentUser(r *http.Request) *User {
	if u, ok := r.Context().Value(userKey).(*User); ok {
		return u
	}
	return nil
}

// requireAuth resolves the session cookie to a live user row and injects it
// into the request context. A token whose user no longer exists (or was
// deactivated) behaves as logged out.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cfg.CookieName)
		if err != nil || c.Value == "" {
			errorJSON(w, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := parseToken(cfg.JWTSecret, c.Value)
		if err != nil {
			errorJSON(w, http.StatusUnauthorized, "invalid session")
			return
		}
		u, err := store.GetUser(claims.UserID)
		if err != nil {
			errorJSON(w, http.StatusInternalServerError, "db error")
			return
		}
		if u == nil || !u.IsActive {
			errorJSON(w, http.StatusUnauthorized, "invalid session")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a subtree on the allow-list. Must be mounted inside
// requireAuth; a missing user is a 401, a role miss is a 403.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := currentUser(r)
			if u == nil {
				errorJSON(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !allowed[u.Role] {
				errorJSON(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
