package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/tasktracker/internal/config"
	"github.com/geocoder89/tasktracker/internal/http/handlers"
	"github.com/geocoder89/tasktracker/internal/http/middlewares"
	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Deps is everything the router needs from process wiring.
type Deps struct {
	Auth   handlers.Authenticator
	Tasks  handlers.TaskManager
	Tokens middlewares.TokenVerifier

	// Ping and Draining back /readyz; nil means always ready.
	Ping     func() error
	Draining func() bool

	// Limits backs the rate limiters; nil falls back to in-process counters.
	Limits middlewares.Counter

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("tasktracker-api"))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))

	// health
	h := handlers.NewHealthHandler(deps.Ping, deps.Draining)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authLimiter := middlewares.NewRateLimiter("auth", deps.Limits, cfg.RateLimitAuthPerMinute, time.Minute, deps.Prom)
	apiLimiter := middlewares.NewRateLimiter("api", deps.Limits, cfg.RateLimitAPIPerMinute, time.Minute, deps.Prom)

	api := r.Group("/")
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes), middlewares.RequireJSON())

	// auth routes are reachable without a token
	authHandler := handlers.NewAuthHandler(deps.Auth)
	authGroup := api.Group("/auth", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	tasksHandler := handlers.NewTasksHandler(deps.Tasks)
	authMW := middlewares.NewAuthMiddleware(deps.Tokens)

	tasks := api.Group("/tasks", authMW.RequireAuth(), apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	tasks.GET("", tasksHandler.List)
	tasks.GET("/with-users", tasksHandler.ListWithUsers)
	tasks.GET("/:id", tasksHandler.Get)
	tasks.POST("", tasksHandler.Create)
	tasks.PATCH("/:id", tasksHandler.Update)
	tasks.PUT("/:id", tasksHandler.Update)
	tasks.DELETE("/:id", tasksHandler.Delete)

	return r
}
