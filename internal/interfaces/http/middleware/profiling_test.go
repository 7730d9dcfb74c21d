package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/realestate/backend/internal/interfaces/http/middleware"
)

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := middleware.DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Contains(t, cfg.SkipPaths, "/health")
}

func TestProfilingMiddleware_Labels(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.TenantIDKey, "11111111-1111-1111-1111-111111111111")
		c.Next()
	})
	r.Use(middleware.Profiling())

	labels := map[string]string{}
	r.POST("/api/v1/financings/:id/payments", func(c *gin.Context) {
		for _, key := range []string{middleware.ProfilingLabelMethod, middleware.ProfilingLabelRoute, middleware.ProfilingLabelTenantID} {
			if v, ok := pprof.Label(c.Request.Context(), key); ok {
				labels[key] = v
			}
		}
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/financings/abc/payments", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "POST", labels[middleware.ProfilingLabelMethod])
	assert.Equal(t, "/api/v1/financings/:id/payments", labels[middleware.ProfilingLabelRoute])
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", labels[middleware.ProfilingLabelTenantID])
}

func TestProfilingMiddleware_EmptyTenantDropped(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Profiling())

	var hasTenant bool
	r.GET("/api/v1/financings/:id", func(c *gin.Context) {
		_, hasTenant = pprof.Label(c.Request.Context(), middleware.ProfilingLabelTenantID)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/financings/abc", nil))

	assert.False(t, hasTenant)
}

func TestProfilingMiddleware_SkipAndDisabled(t *testing.T) {
	for name, cfg := range map[string]middleware.ProfilingConfig{
		"skipped path": middleware.DefaultProfilingConfig(),
		"disabled":     {Enabled: false},
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.ProfilingWithConfig(cfg))

			var labeled bool
			r.GET("/health", func(c *gin.Context) {
				_, labeled = pprof.Label(c.Request.Context(), middleware.ProfilingLabelMethod)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.False(t, labeled)
		})
	}
}
