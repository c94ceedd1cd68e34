package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/feedbackflow/feedback-system/docs"
	"github.com/feedbackflow/feedback-system/internal/api/handler"
	"github.com/feedbackflow/feedback-system/internal/api/middleware"
	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
	"github.com/feedbackflow/feedback-system/internal/infrastructure/http/handlers"
)

// Dependencies are the services and settings the HTTP layer is built from.
type Dependencies struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Feedback ports.FeedbackService
	Stats    ports.StatsService

	// Health lists the backing stores probed by /health/ready.
	Health []handlers.Pinger
	Logger zerolog.Logger

	AllowOrigins  []string
	SecureCookies bool
	// Registerer receives the HTTP metrics. Nil disables /metrics.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     deps.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
	}))

	if deps.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "feedback_http",
			Registerer: deps.Registerer,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Health...)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handler.NewAuthHandler(deps.Auth, deps.SecureCookies)
	userHandler := handler.NewUserHandler(deps.Auth, deps.Users)
	feedbackHandler := handler.NewFeedbackHandler(deps.Feedback)
	dashboardHandler := handler.NewDashboardHandler(deps.Stats)

	authMw := middleware.Auth(deps.Auth)
	managerOnly := middleware.RBAC(domain.RoleManager)

	v1 := e.Group("/api/v1")

	// --- Auth ---
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/logout", authHandler.Logout)
	v1.GET("/auth/me", authHandler.Me, authMw)

	// --- Users ---
	v1.POST("/users", userHandler.Register)
	users := v1.Group("/users", authMw)
	users.GET("/:id", userHandler.Get)
	users.GET("/team/:managerId", userHandler.Team, managerOnly)
	users.POST("/assign-team-member", userHandler.AssignTeamMember, managerOnly)

	// --- Feedback ---
	feedback := v1.Group("/feedback", authMw)
	feedback.POST("", feedbackHandler.Create, managerOnly)
	feedback.GET("", feedbackHandler.List)
	feedback.GET("/:id", feedbackHandler.Get)
	feedback.PUT("/:id", feedbackHandler.Update)
	// Acknowledge and the record routes leave role checks to the service so a
	// record the caller cannot see reads as not found.
	feedback.PATCH("/:id/acknowledge", feedbackHandler.Acknowledge)
	feedback.DELETE("/:id", feedbackHandler.Delete)

	// --- Dashboard ---
	dashboard := v1.Group("/dashboard", authMw)
	dashboard.GET("/stats", dashboardHandler.Stats)
	dashboard.GET("/recent", dashboardHandler.Recent)
	dashboard.GET("/team", dashboardHandler.Team, managerOnly)

	return e
}

// requestLogger emits one structured access log line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
