package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/infrastructure/cache"
	"github.com/realestate/backend/internal/interfaces/http/dto"
)

type failingStore struct{}

func (failingStore) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}
func (failingStore) Forget(context.Context, string) error { return nil }
func (failingStore) Close() error                         { return nil }

func newIdempotencyRouter(t *testing.T, status *int) (*gin.Engine, *int) {
	t.Helper()
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	calls := 0
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(TenantIDKey, c.GetHeader("X-Test-Tenant"))
		c.Next()
	})
	router.Use(Idempotency(store, time.Hour, nil))
	router.POST("/financings/:id/payments", func(c *gin.Context) {
		calls++
		c.Status(*status)
	})
	return router, &calls
}

func postWithKey(router *gin.Engine, path, tenant, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("X-Test-Tenant", tenant)
	if key != "" {
		req.Header.Set(IdempotencyHeaderKey, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_RejectsReuse(t *testing.T) {
	status := http.StatusCreated
	router, calls := newIdempotencyRouter(t, &status)

	first := postWithKey(router, "/financings/f1/payments", "t1", "k-1")
	second := postWithKey(router, "/financings/f1/payments", "t1", "k-1")

	assert.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, dto.ErrCodeIdempotencyKeyReused, decodeError(t, second).Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotency_KeyScope(t *testing.T) {
	status := http.StatusCreated
	router, calls := newIdempotencyRouter(t, &status)

	assert.Equal(t, http.StatusCreated, postWithKey(router, "/financings/f1/payments", "t1", "k-1").Code)
	assert.Equal(t, http.StatusCreated, postWithKey(router, "/financings/f2/payments", "t1", "k-1").Code)
	assert.Equal(t, http.StatusCreated, postWithKey(router, "/financings/f1/payments", "t2", "k-1").Code)
	assert.Equal(t, 3, *calls)
}

func TestIdempotency_FailedRequestReleasesKey(t *testing.T) {
	status := http.StatusConflict
	router, calls := newIdempotencyRouter(t, &status)

	assert.Equal(t, http.StatusConflict, postWithKey(router, "/financings/f1/payments", "t1", "k-1").Code)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, postWithKey(router, "/financings/f1/payments", "t1", "k-1").Code)
	assert.Equal(t, 2, *calls)
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	status := http.StatusCreated
	router, calls := newIdempotencyRouter(t, &status)

	postWithKey(router, "/financings/f1/payments", "t1", "")
	postWithKey(router, "/financings/f1/payments", "t1", "")

	assert.Equal(t, 2, *calls)
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	status := http.StatusCreated
	router, calls := newIdempotencyRouter(t, &status)

	w := postWithKey(router, "/financings/f1/payments", "t1", strings.Repeat("k", 200))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, *calls)
}

func TestIdempotency_StoreErrorFailsOpen(t *testing.T) {
	router := gin.New()
	router.Use(Idempotency(failingStore{}, time.Hour, nil))
	router.POST("/pay", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/pay", nil)
	req.Header.Set(IdempotencyHeaderKey, "k-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}
