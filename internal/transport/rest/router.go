package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/profixcrm/profixcrm/internal/auth"
	"github.com/profixcrm/profixcrm/internal/desk"
	"github.com/profixcrm/profixcrm/internal/lead"
	"github.com/profixcrm/profixcrm/internal/rbac"
	"github.com/profixcrm/profixcrm/internal/transport/middleware"
	"github.com/profixcrm/profixcrm/internal/transport/swagger"
	"github.com/profixcrm/profixcrm/internal/user"
)

// Handlers bundles every mounted handler so the server entrypoint builds
// them once and hands them over together.
type Handlers struct {
	Auth *auth.Handler
	User *user.Handler
	RBAC *rbac.Handler
	Desk *desk.Handler
	Lead *lead.Handler
}

// RegisterAllRoutes wires the full API surface under /api/v1. Route guards
// only gate on permissions already resolved into the request context; the
// services re-check anything data-dependent such as desk membership.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, authz *rbac.Authorization, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", handlers.Auth.Login)
			sr.Post("/refresh", handlers.Auth.RefreshToken)
			sr.Post("/logout", handlers.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.AuthMiddleware)

			pr.Get("/users/me", handlers.User.GetCurrentUser)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(authz.Require(rbac.PermUsersView)).Get("/", handlers.User.ListUsers)
				ur.With(authz.Require(rbac.PermUsersCreate)).Post("/", handlers.User.CreateUser)
				ur.With(authz.Require(rbac.PermUsersView)).Get("/{id}", handlers.User.GetUser)
				ur.With(authz.Require(rbac.PermUsersEdit)).Patch("/{id}", handlers.User.UpdateUser)
				ur.With(authz.Require(rbac.PermUsersEdit)).Put("/{id}/activate", handlers.User.ActivateUser)
				ur.With(authz.Require(rbac.PermUsersEdit)).Put("/{id}/deactivate", handlers.User.DeactivateUser)
				ur.With(authz.Require(rbac.PermUsersEdit)).Put("/{id}/password", handlers.User.ResetPassword)

				ur.With(authz.Require(rbac.PermUsersView)).Get("/{id}/access", handlers.RBAC.GetUserAccess)
				ur.With(authz.Require(rbac.PermRolesEdit)).Post("/{id}/roles", handlers.RBAC.AssignRole)
			})

			pr.Route("/roles", func(rr chi.Router) {
				rr.With(authz.Require(rbac.PermRolesView)).Get("/", handlers.RBAC.ListRoles)
				rr.With(authz.Require(rbac.PermRolesEdit)).Post("/{id}/permissions", handlers.RBAC.GrantPermission)
			})

			pr.With(authz.Require(rbac.PermRolesView)).Get("/permissions", handlers.RBAC.ListPermissions)

			pr.Route("/desks", func(dr chi.Router) {
				dr.With(authz.Require(rbac.PermDesksView)).Get("/", handlers.Desk.ListDesks)
				dr.With(authz.Require(rbac.PermDesksCreate)).Post("/", handlers.Desk.CreateDesk)
				dr.With(authz.Require(rbac.PermDesksView)).Get("/{id}", handlers.Desk.GetDesk)
				dr.With(authz.Require(rbac.PermDesksEdit)).Patch("/{id}", handlers.Desk.UpdateDesk)
				dr.With(authz.Require(rbac.PermDesksEdit)).Delete("/{id}", handlers.Desk.DeactivateDesk)

				dr.With(authz.Require(rbac.PermDesksView)).Get("/{id}/users", handlers.Desk.ListMembers)
				dr.With(authz.Require(rbac.PermDesksEdit)).Post("/{id}/users", handlers.RBAC.AssignDesk)
				dr.With(authz.Require(rbac.PermDesksEdit)).Put("/{id}/primary", handlers.Desk.SetPrimary)
			})

			pr.Route("/leads", func(lr chi.Router) {
				lr.With(authz.RequireLeadVisibility()).Get("/", handlers.Lead.ListLeads)
				lr.With(authz.RequireLeadVisibility()).Get("/{id}", handlers.Lead.GetLead)
				lr.With(authz.Require(rbac.PermLeadsCreate)).Post("/", handlers.Lead.CreateLead)
				lr.With(authz.Require(rbac.PermLeadsEdit)).Patch("/{id}", handlers.Lead.UpdateLead)
				lr.With(authz.Require(rbac.PermLeadsAssign)).Put("/{id}/assignee", handlers.Lead.AssignLead)
			})
		})
	})
}
