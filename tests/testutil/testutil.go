// Package testutil holds helpers shared by the financing integration tests:
// deterministic IDs, an HTTP client for the API envelope, and an event
// recorder for the domain event bus.
package testutil

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID returns the same UUID for the same seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// TestTenantID is the default tenant of the integration tests
func TestTenantID() uuid.UUID {
	return NewTestUUID("test-tenant")
}

// TestUserID is the default acting user of the integration tests
func TestUserID() uuid.UUID {
	return NewTestUUID("test-user")
}

// Date parses a YYYY-MM-DD date in UTC and fails the test on bad input
func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

// AssertDecimal compares a decimal against its string form, ignoring scale
func AssertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) bool {
	t.Helper()
	w := decimal.RequireFromString(want)
	if w.Equal(got) {
		return true
	}
	return assert.Fail(t, "decimal mismatch: want "+w.String()+", got "+got.String(), msgAndArgs...)
}

// WaitForCondition polls condition until it holds or timeout elapses
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// RequireEventually fails the test if condition does not hold within timeout
func RequireEventually(t *testing.T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	if !WaitForCondition(t, condition, timeout, 10*time.Millisecond) {
		require.Fail(t, "Condition not met within timeout", msgAndArgs...)
	}
}
