package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realestate/backend/internal/infrastructure/config"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestValidator() *JWTValidator {
	return NewJWTValidator(config.JWTConfig{Secret: testSecret, Issuer: "realestate-admin"})
}

func newClaims() *Claims {
	return &Claims{
		TenantID:    uuid.NewString(),
		UserID:      uuid.NewString(),
		Username:    "cashier",
		Permissions: []string{PermissionFinancingRead, PermissionFinancingWrite},
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	v := newTestValidator()
	in := newClaims()

	token, err := v.Sign(in, time.Hour)
	require.NoError(t, err)

	got, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, in.TenantID, got.TenantID)
	assert.Equal(t, in.UserID, got.UserID)
	assert.Equal(t, "realestate-admin", got.Issuer)
	assert.True(t, got.HasPermission(PermissionFinancingWrite))
	assert.False(t, got.HasPermission(PermissionPaymentCancel))

	tenant, err := got.TenantUUID()
	require.NoError(t, err)
	assert.Equal(t, in.TenantID, tenant.String())
}

func TestValidate_Expired(t *testing.T) {
	v := newTestValidator()
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := v.Sign(newClaims(), time.Hour)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_NotYetValid(t *testing.T) {
	v := newTestValidator()
	v.now = func() time.Time { return time.Now().Add(time.Hour) }
	token, err := v.Sign(newClaims(), 2*time.Hour)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestValidate_Rejections(t *testing.T) {
	v := newTestValidator()

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTValidator(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "realestate-admin"})
		token, err := other.Sign(newClaims(), time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := newClaims()
		c.Issuer = "someone-else"
		token, err := v.Sign(c, time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token", func(t *testing.T) {
		c := newClaims()
		c.TokenType = "refresh"
		token, err := v.Sign(c, time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("missing tenant", func(t *testing.T) {
		c := newClaims()
		c.TenantID = ""
		token, err := v.Sign(c, time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrMissingTenantID)
	})

	t.Run("malformed user", func(t *testing.T) {
		c := newClaims()
		c.UserID = "not-a-uuid"
		token, err := v.Sign(c, time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrMissingUserID)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, newClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestHasPermission_Wildcard(t *testing.T) {
	c := &Claims{Permissions: []string{"*"}}
	assert.True(t, c.HasPermission(PermissionPaymentCancel))
}
