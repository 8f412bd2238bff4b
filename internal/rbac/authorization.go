package rbac

import (
	"log/slog"
	"net/http"

	"github.com/profixcrm/profixcrm/internal/auth"
)

// Authorization gates HTTP routes on the effective permission set the auth
// middleware resolved into the request context. Denial never reveals
// whether the protected resource exists.
type Authorization struct {
	logger *slog.Logger
}

func NewAuthorization(logger *slog.Logger) *Authorization {
	return &Authorization{logger: logger}
}

func (a *Authorization) Check(next http.HandlerFunc, permission Permission) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok || user == nil {
			a.logger.Warn("authorization check failed: user not found in context")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !user.HasPermission(permission.String()) {
			a.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
				"user_id", user.ID,
				"required_permission", permission.String())
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// Require builds a route middleware that demands one catalog permission.
func (a *Authorization) Require(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.Check(next.ServeHTTP, permission)
	}
}

// RequireAny admits users holding at least one of the given permissions.
func (a *Authorization) RequireAny(permissions ...Permission) func(http.Handler) http.Handler {
	names := make([]string, len(permissions))
	for i, p := range permissions {
		names[i] = p.String()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.HasAnyPermission(names) {
				a.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required_any", names,
					"user_permissions", user.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireLeadVisibility admits users holding any lead view permission.
func (a *Authorization) RequireLeadVisibility() func(http.Handler) http.Handler {
	return a.RequireAny(PermLeadsViewAll, PermLeadsViewDesk, PermLeadsViewAssigned)
}
