package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/realestate/backend/internal/infrastructure/telemetry"
)

// Profiling label keys
const (
	ProfilingLabelMethod   = "http_method"
	ProfilingLabelRoute    = "http_route"
	ProfilingLabelTenantID = "tenant_id"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths that don't need profiling labels (e.g., health checks).
	SkipPaths []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/healthz", "/ready", "/api/v1/health"},
	}
}

// Profiling returns profiling middleware with default configuration.
// Place it after the tenant middleware so tenant_id is known.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig tags CPU samples taken while serving the request with
// the HTTP method, the route pattern and the tenant, so a hot allocation
// run can be traced back to the endpoint in Pyroscope.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		labels := map[string]string{
			ProfilingLabelMethod:   c.Request.Method,
			ProfilingLabelRoute:    c.FullPath(),
			ProfilingLabelTenantID: GetTenantID(c),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
