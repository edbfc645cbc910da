package api

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/caseperl/caseperl-api/docs" // Swagger docs
	"github.com/caseperl/caseperl-api/internal/api/handler"
	"github.com/caseperl/caseperl-api/internal/api/middleware"
	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Auth   ports.AuthService
	Cases  ports.CaseService
	Events ports.EventService

	// Checks are pinged by the readiness probe, keyed by dependency name.
	Checks map[string]handler.Pinger

	// RateLimit applies to register and login. A zero Requests disables it.
	RateLimit middleware.RateLimitConfig

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
//
//	@title						caseperl API
//	@version					1.0
//	@description				Case tracking with JWT authentication.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Pre(echomiddleware.AddTrailingSlashWithConfig(echomiddleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool { return !isAPIPath(c.Request().URL.Path) },
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(deps.Logger))

	// HTTP metrics go to a per-router registry so several routers can
	// coexist in one process; /metrics serves it alongside the defaults.
	reg := prometheus.NewRegistry()
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "caseperl",
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, reg},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Checks)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	authn := middleware.Auth(deps.Auth)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	var throttle echo.MiddlewareFunc = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if deps.RateLimit.Requests > 0 {
		throttle = middleware.RateLimit(deps.RateLimit)
	}

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	auth := e.Group("/auth")
	auth.POST("/register/", authHandler.Register, throttle)
	auth.POST("/login/", authHandler.Login, throttle)
	auth.POST("/token/refresh/", authHandler.Refresh)
	auth.POST("/logout/", authHandler.Logout, authn)
	auth.GET("/me/", authHandler.Me, authn)
	auth.PUT("/users/:id/active/", authHandler.SetActive, authn, adminOnly)
	auth.DELETE("/users/:id/", authHandler.DeleteUser, authn, adminOnly)

	// --- Case routes (bearer token required) ---
	caseHandler := handler.NewCaseHandler(deps.Cases, deps.Events)
	cases := e.Group("/cases", authn)
	cases.GET("/", caseHandler.List)
	cases.POST("/", caseHandler.Create)
	cases.GET("/:id/", caseHandler.Get)
	cases.GET("/user/:userId/", caseHandler.ListForUser)
	cases.PUT("/update/:id/:userId/", caseHandler.Update)
	cases.PUT("/status/:id/:statusIndex/", caseHandler.SetStatus)
	cases.DELETE("/delete/:id/", caseHandler.Delete)
	cases.GET("/history/:id/", caseHandler.History)

	return e
}

// isAPIPath reports whether path belongs to the slash-terminated API routes.
func isAPIPath(path string) bool {
	return path == "/auth" || path == "/cases" ||
		strings.HasPrefix(path, "/auth/") || strings.HasPrefix(path, "/cases/")
}
