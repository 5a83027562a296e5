package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/conversia/admin-platform/internal/api/handler"
	"github.com/conversia/admin-platform/internal/api/middleware"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/infrastructure/http/handlers"
	"github.com/conversia/admin-platform/pkg/logger"
)

// Dependencies carries everything the router wires into routes.
type Dependencies struct {
	Log          zerolog.Logger
	AuthService  ports.AuthService
	LoginLimiter *middleware.LoginLimiter
	Readiness    map[string]handlers.Pinger
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer

	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Teams     *handler.TeamHandler
	Roles     *handler.RoleHandler
	Companies *handler.CompanyHandler
	Brands    *handler.BrandHandler
	AI        *handler.AIHandler
	Tags      *handler.TagHandler
	Tickets   *handler.TicketHandler
	Templates *handler.TemplateHandler
	Admin     *handler.AdminHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
// Every route outside the public set runs Authenticate followed by a Gate.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(scopedLogger(deps.Log))
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "admin",
		Registerer: deps.Registerer,
	}))

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(deps.Readiness).Readiness)

	// --- Public routes ---
	login := []echo.MiddlewareFunc{}
	if deps.LoginLimiter != nil {
		login = append(login, deps.LoginLimiter.Middleware())
	}
	e.POST("/auth/register", deps.Auth.Register)
	e.POST("/auth/login", deps.Auth.Login, login...)
	e.POST("/auth/verify-token", deps.Auth.VerifyToken)
	e.POST("/admin/create-super-admin", deps.Admin.CreateSuperAdmin)

	// --- Authenticated routes ---
	authenticate := middleware.Authenticate(deps.AuthService)
	for _, r := range protectedRoutes(deps) {
		e.Add(r.method, r.path, r.handler, authenticate, middleware.Gate(r.rule))
	}

	return e
}

type route struct {
	method  string
	path    string
	rule    middleware.Rule
	handler echo.HandlerFunc
}

func protectedRoutes(d Dependencies) []route {
	var (
		self       = middleware.Authenticated()
		admin      = middleware.Admin()
		superAdmin = middleware.SuperAdmin()
		perm       = middleware.Permission
		allOf      = middleware.All
		anyOf      = middleware.Any
		brandParam = middleware.BrandParam("id")
		teamParam  = middleware.TeamParam("id")
	)

	return []route{
		// auth
		{echo.POST, "/auth/logout", self, d.Auth.Logout},
		{echo.POST, "/auth/logout-all", self, d.Auth.LogoutAll},
		{echo.GET, "/auth/me", self, d.Auth.Me},
		{echo.PUT, "/auth/me", self, d.Auth.UpdateMe},
		{echo.POST, "/auth/change-password", self, d.Auth.ChangePassword},
		{echo.POST, "/auth/refresh-token", self, d.Auth.RefreshToken},
		{echo.GET, "/auth/permissions", self, d.Auth.Permissions},

		// admin
		{echo.POST, "/admin/create-company-admin", superAdmin, d.Admin.CreateCompanyAdmin},
		{echo.POST, "/admin/assign-user-to-company/:user_id/:company_id", superAdmin, d.Admin.AssignUserToCompany},
		{echo.GET, "/admin/users-by-company/:company_id", anyOf(superAdmin, middleware.CompanyParam("company_id")), d.Admin.UsersByCompany},
		{echo.GET, "/admin/audit-logs", perm(domain.PermSystemAudit), d.Admin.AuditLogs},

		// users
		{echo.GET, "/users", perm(domain.PermUserView), d.Users.List},
		{echo.GET, "/users/:id", perm(domain.PermUserView), d.Users.Get},
		{echo.POST, "/users", perm(domain.PermUserCreate), d.Users.Create},
		{echo.PUT, "/users/:id", perm(domain.PermUserUpdate), d.Users.Update},
		{echo.DELETE, "/users/:id", perm(domain.PermUserDelete), d.Users.Delete},

		// teams
		{echo.GET, "/teams", perm(domain.PermUserView), d.Teams.List},
		{echo.GET, "/teams/:id", anyOf(teamParam, perm(domain.PermUserView)), d.Teams.Get},
		{echo.POST, "/teams", perm(domain.PermUserCreate), d.Teams.Create},
		{echo.PUT, "/teams/:id", anyOf(teamParam, perm(domain.PermUserUpdate)), d.Teams.Update},
		{echo.DELETE, "/teams/:id", perm(domain.PermUserDelete), d.Teams.Delete},
		{echo.POST, "/teams/:id/members/:user_id", anyOf(teamParam, perm(domain.PermUserUpdate)), d.Teams.AddMember},
		{echo.DELETE, "/teams/:id/members/:user_id", anyOf(teamParam, perm(domain.PermUserUpdate)), d.Teams.RemoveMember},

		// roles
		{echo.GET, "/roles", self, d.Roles.List},
		{echo.GET, "/roles/templates", self, d.Roles.Templates},
		{echo.GET, "/roles/permissions", self, d.Roles.Permissions},
		{echo.GET, "/roles/:id", self, d.Roles.Get},
		{echo.POST, "/roles", admin, d.Roles.Create},
		{echo.PUT, "/roles/:id", admin, d.Roles.Update},
		{echo.DELETE, "/roles/:id", admin, d.Roles.Delete},
		{echo.POST, "/roles/:id/assign-user/:user_id", anyOf(admin, perm(domain.PermUserAssignRole)), d.Roles.AssignUser},
		{echo.DELETE, "/roles/:id/remove-user/:user_id", anyOf(admin, perm(domain.PermUserAssignRole)), d.Roles.RemoveUser},
		{echo.GET, "/roles/:id/users", self, d.Roles.Users},

		// companies
		{echo.GET, "/companies", superAdmin, d.Companies.List},
		{echo.GET, "/companies/:id", middleware.CompanyParam("id"), d.Companies.Get},
		{echo.GET, "/companies/:id/limits", middleware.CompanyParam("id"), d.Companies.Limits},
		{echo.POST, "/companies", perm(domain.PermCompanyCreate), d.Companies.Create},
		{echo.PUT, "/companies/:id", allOf(perm(domain.PermCompanyUpdate), middleware.CompanyParam("id")), d.Companies.Update},
		{echo.DELETE, "/companies/:id", perm(domain.PermCompanyDelete), d.Companies.Delete},

		// brands
		{echo.GET, "/brands", perm(domain.PermBrandView), d.Brands.List},
		{echo.GET, "/brands/:id", anyOf(brandParam, perm(domain.PermBrandView)), d.Brands.Get},
		{echo.POST, "/brands", perm(domain.PermBrandCreate), d.Brands.Create},
		{echo.PUT, "/brands/:id", perm(domain.PermBrandUpdate), d.Brands.Update},
		{echo.DELETE, "/brands/:id", perm(domain.PermBrandDelete), d.Brands.Delete},

		// ai providers
		{echo.GET, "/ai-providers", perm(domain.PermLLMView), d.AI.ListProviders},
		{echo.GET, "/ai-providers/:id", perm(domain.PermLLMView), d.AI.GetProvider},
		{echo.POST, "/ai-providers", perm(domain.PermLLMCreate), d.AI.CreateProvider},
		{echo.PUT, "/ai-providers/:id", perm(domain.PermLLMUpdate), d.AI.UpdateProvider},
		{echo.DELETE, "/ai-providers/:id", perm(domain.PermLLMDelete), d.AI.DeleteProvider},
		{echo.POST, "/ai-providers/:id/test", perm(domain.PermLLMTest), d.AI.TestProvider},

		// ai models
		{echo.GET, "/ai-models", perm(domain.PermLLMView), d.AI.ListModels},
		{echo.GET, "/ai-models/:id", perm(domain.PermLLMView), d.AI.GetModel},
		{echo.POST, "/ai-models", perm(domain.PermLLMCreate), d.AI.CreateModel},
		{echo.PUT, "/ai-models/:id", perm(domain.PermLLMUpdate), d.AI.UpdateModel},
		{echo.DELETE, "/ai-models/:id", perm(domain.PermLLMDelete), d.AI.DeleteModel},
		{echo.POST, "/ai-models/:id/toggle", perm(domain.PermLLMUpdate), d.AI.ToggleModel},

		// tags
		{echo.GET, "/tags", perm(domain.PermMessageView), d.Tags.List},
		{echo.GET, "/tags/:id", perm(domain.PermMessageView), d.Tags.Get},
		{echo.POST, "/tags", perm(domain.PermMessageCreate), d.Tags.Create},
		{echo.PUT, "/tags/:id", perm(domain.PermMessageUpdate), d.Tags.Update},
		{echo.DELETE, "/tags/:id", perm(domain.PermMessageDelete), d.Tags.Delete},

		// tickets
		{echo.GET, "/tickets", perm(domain.PermMessageView), d.Tickets.ListTickets},
		{echo.GET, "/tickets/:id", perm(domain.PermMessageView), d.Tickets.GetTicket},
		{echo.POST, "/tickets", perm(domain.PermMessageCreate), d.Tickets.CreateTicket},
		{echo.PUT, "/tickets/:id", perm(domain.PermMessageUpdate), d.Tickets.UpdateTicket},
		{echo.DELETE, "/tickets/:id", perm(domain.PermMessageDelete), d.Tickets.DeleteTicket},

		// feedback
		{echo.GET, "/feedback", perm(domain.PermAnalyticsView), d.Tickets.ListFeedback},
		{echo.GET, "/feedback/:id", perm(domain.PermAnalyticsView), d.Tickets.GetFeedback},
		{echo.POST, "/feedback", perm(domain.PermMessageCreate), d.Tickets.CreateFeedback},
		{echo.DELETE, "/feedback/:id", perm(domain.PermMessageDelete), d.Tickets.DeleteFeedback},

		// templates
		{echo.GET, "/templates", perm(domain.PermAnalyticsView), d.Templates.List},
		{echo.GET, "/templates/:id", perm(domain.PermAnalyticsView), d.Templates.Get},
		{echo.GET, "/templates/:id/content", perm(domain.PermAnalyticsExport), d.Templates.Content},
		{echo.POST, "/templates", perm(domain.PermAnalyticsExport), d.Templates.Create},
		{echo.DELETE, "/templates/:id", perm(domain.PermAnalyticsExport), d.Templates.Delete},
	}
}

// scopedLogger stores a child logger carrying the request id in the
// request context.
func scopedLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logger.With(c.Request().Context(), log, "request_id", id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// requestLogger writes one structured line per request through the
// request-scoped logger, so authenticated requests also carry user_id.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			l := logger.FromContext(c.Request().Context(), log)
			ev := l.Info()
			if v.Error != nil {
				ev = l.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
