package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/infrastructure/logger"
	"github.com/realestate/backend/internal/interfaces/http/dto"
)

// Tenant context keys
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// HeaderEnabled enables X-Tenant-ID header extraction
	HeaderEnabled bool
	// DefaultTenantID is used when neither the token nor the header name a
	// tenant. Single-tenant deployments set it; leave empty to require one.
	DefaultTenantID string
	// SkipPaths are paths that don't require tenant context (e.g., health check)
	SkipPaths []string
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		HeaderEnabled: true,
		SkipPaths:     []string{"/health", "/healthz", "/ready", "/api/v1/health"},
	}
}

// TenantMiddleware resolves the tenant of the request.
// Resolution order: JWT claim > X-Tenant-ID header > configured default.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		jwtTenantID := GetJWTTenantID(c)
		headerTenantID := ""
		if cfg.HeaderEnabled {
			headerTenantID = c.GetHeader(TenantHeaderKey)
		}

		var tenantID, method string
		switch {
		case jwtTenantID != "":
			// A token may not be used against another tenant's data
			if headerTenantID != "" && !strings.EqualFold(headerTenantID, jwtTenantID) {
				log.Warn("Tenant header does not match token",
					zap.String("jwt_tenant_id", jwtTenantID),
					zap.String("header_tenant_id", headerTenantID),
				)
				respondTenantError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Tenant does not match token")
				return
			}
			tenantID, method = jwtTenantID, "jwt"
		case headerTenantID != "":
			tenantID, method = headerTenantID, "header"
		case cfg.DefaultTenantID != "":
			tenantID, method = cfg.DefaultTenantID, "default"
		default:
			respondTenantError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Tenant identification required")
			return
		}

		parsed, err := uuid.Parse(tenantID)
		if err != nil {
			respondTenantError(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid tenant ID format")
			return
		}

		c.Set(TenantIDKey, parsed.String())
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), parsed.String()))

		log.Debug("Tenant identified",
			zap.String("tenant_id", parsed.String()),
			zap.String("method", method),
		)
		c.Next()
	}
}

func respondTenantError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestIDFromContext(c)))
}

// GetTenantID retrieves the tenant ID from gin.Context
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// GetTenantUUID retrieves the tenant ID as UUID from gin.Context
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(tenantID)
}
