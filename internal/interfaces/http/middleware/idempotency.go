package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/interfaces/http/dto"
)

// IdempotencyHeaderKey carries the client-chosen key of a mutating request
const IdempotencyHeaderKey = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the header copied into store keys
const maxIdempotencyKeyLength = 128

// Idempotency rejects a repeated mutating request that carries an
// Idempotency-Key already used by the same tenant on the same path.
// Requests without the header pass through. A key is released when the
// request fails, so the client may retry it. Store errors fail open: the
// engine's own duplicate-operation check still guards bank payments.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeaderKey)
		if key == "" || store == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidInput, "Idempotency-Key is too long", getRequestIDFromContext(c)))
			return
		}

		storeKey := GetTenantID(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		ctx := c.Request.Context()

		claimed, err := store.Claim(ctx, storeKey, ttl)
		if err != nil {
			log.Warn("Idempotency store unavailable, continuing without key check",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !claimed {
			c.Set(ErrorCodeKey, dto.ErrCodeIdempotencyKeyReused)
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeIdempotencyKeyReused,
				"A request with this Idempotency-Key was already processed",
				getRequestIDFromContext(c),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			// The request context may be cancelled by now
			if err := store.Forget(context.WithoutCancel(ctx), storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
