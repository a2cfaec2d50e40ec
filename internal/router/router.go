package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AdminHandler mounts operational endpoints under the admin-only group.
type AdminHandler interface {
	RegisterAdminRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	metrics  *prometheus.Handler
	limiter  *middleware.RateLimiter
	config   RouterConfig
	health   Handler
	realtime Handler
	handlers []Handler
	admin    []AdminHandler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	SecurityConfig   middleware.SecurityConfig
	MaxBodyBytes     int64
	MetricsPath      string
}

type Handlers struct {
	Health   Handler
	Realtime Handler
	// API handlers are mounted under /api/v1 behind authentication.
	API   []Handler
	Admin []AdminHandler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	handlers Handlers,
	config RouterConfig,
	log *logger.Logger,
) (*Router, error) {
	if err := validator.RegisterGin(); err != nil {
		return nil, err
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		metrics:  metrics,
		config:   config,
		health:   handlers.Health,
		realtime: handlers.Realtime,
		handlers: handlers.API,
		admin:    handlers.Admin,
	}
	if config.RateLimitEnabled {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.SecurityHeaders(config.SecurityConfig),
		middleware.CORS(config.CORSConfig),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}

	return r, nil
}

func (r *Router) Setup() {
	if r.health != nil {
		r.health.RegisterRoutes(&r.engine.RouterGroup)
	}
	if r.metrics != nil {
		path := r.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, r.metrics.Handler())
	}

	protected := r.engine.Group("")
	protected.Use(r.auth.Authenticate())
	if r.limiter != nil {
		protected.Use(r.limiter.RateLimit())
	}

	api := protected.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	if r.realtime != nil {
		r.realtime.RegisterRoutes(api)
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	for _, h := range r.admin {
		h.RegisterAdminRoutes(admin)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
