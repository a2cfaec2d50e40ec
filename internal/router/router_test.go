package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/auth"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

type sweepHandler struct{}

func (sweepHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/sweep", func(c *gin.Context) { c.Status(http.StatusAccepted) })
}

type liveHandler struct{}

func (liveHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func setup(t *testing.T) (*gin.Engine, auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt := auth.NewJWTService("router-test-secret", "practice")
	r, err := NewRouter(
		middleware.NewAuthMiddleware(jwt),
		prometheus.New(prom.NewRegistry(), "practice"),
		Handlers{
			Health: liveHandler{},
			API:    []Handler{pingHandler{}},
			Admin:  []AdminHandler{sweepHandler{}},
		},
		RouterConfig{
			RateLimitEnabled: true,
			RateLimit:        100,
			RateBurst:        100,
			CORSConfig:       middleware.DefaultCORSConfig(nil),
			SecurityConfig:   middleware.DefaultSecurityConfig(),
			MaxBodyBytes:     1 << 10,
		},
		logger.Nop(),
	)
	require.NoError(t, err)
	r.Setup()
	return r.Engine(), jwt
}

func bearer(t *testing.T, jwt auth.JWTService, role model.Role) string {
	t.Helper()
	token, err := jwt.GenerateAccessToken(&model.User{ID: uuid.New(), Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(engine *gin.Engine, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	engine, jwt := setup(t)

	t.Run("health is public", func(t *testing.T) {
		w := do(engine, http.MethodGet, "/health/live", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	})

	t.Run("metrics is public", func(t *testing.T) {
		w := do(engine, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/api/v1/ping", "").Code)
	})

	t.Run("api with token", func(t *testing.T) {
		w := do(engine, http.MethodGet, "/api/v1/ping", bearer(t, jwt, model.RoleClinician))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	})

	t.Run("admin routes reject clinicians", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/admin/sweep", bearer(t, jwt, model.RoleClinician))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin routes accept admins", func(t *testing.T) {
		w := do(engine, http.MethodPost, "/api/v1/admin/sweep", bearer(t, jwt, model.RoleAdmin))
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestRouter_RateLimitPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt := auth.NewJWTService("router-test-secret", "practice")
	r, err := NewRouter(
		middleware.NewAuthMiddleware(jwt),
		nil,
		Handlers{API: []Handler{pingHandler{}}},
		RouterConfig{RateLimitEnabled: true, RateLimit: 0.001, RateBurst: 1, CORSConfig: middleware.DefaultCORSConfig(nil)},
		logger.Nop(),
	)
	require.NoError(t, err)
	r.Setup()

	alice := bearer(t, jwt, model.RoleClinician)
	bob := bearer(t, jwt, model.RoleClinician)

	assert.Equal(t, http.StatusOK, do(r.Engine(), http.MethodGet, "/api/v1/ping", alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r.Engine(), http.MethodGet, "/api/v1/ping", alice).Code)
	assert.Equal(t, http.StatusOK, do(r.Engine(), http.MethodGet, "/api/v1/ping", bob).Code)
}
