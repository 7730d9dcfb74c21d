package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/realestate/backend/internal/interfaces/http/dto"
)

// readAll answers 413 when the body reader reports the limit, like the
// statement upload handler does
func readAll(c *gin.Context) {
	if _, err := io.ReadAll(c.Request.Body); err != nil {
		c.String(http.StatusRequestEntityTooLarge, "too large")
		return
	}
	c.String(http.StatusOK, "ok")
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		limit         int64
		method        string
		body          string
		contentLength int64 // -1 streams the body
		status        int
		code          string
	}{
		{"within limit", 1024, http.MethodPost, `{"amount":"100.00"}`, 19, http.StatusOK, ""},
		{"declared length over limit", 100, http.MethodPost, strings.Repeat("x", 200), 200, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge},
		{"streamed body over limit", 50, http.MethodPost, strings.Repeat("x", 100), -1, http.StatusRequestEntityTooLarge, ""},
		{"streamed body within limit", 50, http.MethodPost, strings.Repeat("x", 40), -1, http.StatusOK, ""},
		{"GET without body", 10, http.MethodGet, "", 0, http.StatusOK, ""},
		{"zero limit disables the check", 0, http.MethodPost, strings.Repeat("x", 500), 500, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(BodyLimit(tt.limit))
			router.Handle(tt.method, "/financings/1/payments", readAll)

			req := httptest.NewRequest(tt.method, "/financings/1/payments", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
			}
		})
	}
}
