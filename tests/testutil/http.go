package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/interfaces/http/dto"
)

// Envelope is the API response wrapper with a typed payload
type Envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

// APIClient sends requests straight into an http.Handler
type APIClient struct {
	handler http.Handler
	headers map[string]string
}

// NewAPIClient wraps handler; every request carries the given headers
func NewAPIClient(handler http.Handler, headers map[string]string) *APIClient {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &APIClient{handler: handler, headers: h}
}

// WithHeader returns a copy of the client that also sends key: value
func (c *APIClient) WithHeader(key, value string) *APIClient {
	clone := NewAPIClient(c.handler, c.headers)
	clone.headers[key] = value
	return clone
}

// Do sends body encoded as JSON. A nil body sends no payload.
func (c *APIClient) Do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.serve(req)
}

// Upload sends a multipart form with one file part and plain fields
func (c *APIClient) Upload(t *testing.T, path, field, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.serve(req)
}

func (c *APIClient) serve(req *http.Request) *httptest.ResponseRecorder {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

// Decode parses the response envelope
func Decode[T any](t *testing.T, w *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()
	var env Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse response: %s", w.Body.String())
	return env
}

// RequireStatus checks the status code and decodes a successful payload
func RequireStatus[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := Decode[T](t, w)
	require.True(t, env.Success, w.Body.String())
	return env.Data
}

// RequireError checks the status code and the error code of a failed response
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) *dto.ErrorInfo {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := Decode[json.RawMessage](t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error, w.Body.String())
	require.Equal(t, code, env.Error.Code, w.Body.String())
	return env.Error
}
