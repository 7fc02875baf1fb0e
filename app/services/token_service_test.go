package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-of-at-least-32-chars!"

func newTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, 24*time.Hour, "crestvault", "crestvault-api", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestGenerateAndValidateTokens(t *testing.T) {
	svc := newTestTokenService(t)

	access, refresh, err := svc.GenerateTokens(42, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

	refreshClaims, err := svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestTokenService(t)
	other, err := NewTokenService(15*time.Minute, 24*time.Hour, "crestvault", "crestvault-api", false, "", "", "another-secret-key-of-32-characters!")
	require.NoError(t, err)

	access, _, err := other.GenerateTokens(1, "user")
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshTokenRequiresRefreshType(t *testing.T) {
	svc := newTestTokenService(t)

	access, refresh, err := svc.GenerateTokens(7, "user")
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshToken(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.NotEmpty(t, newRefresh)

	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)

	// An access token cannot be used as a refresh token
	_, _, err = svc.RefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokeToken(t *testing.T) {
	svc := newTestTokenService(t)

	access, _, err := svc.GenerateTokens(9, "user")
	require.NoError(t, err)

	assert.False(t, svc.IsTokenRevoked(access))
	require.NoError(t, svc.RevokeToken(access))
	assert.True(t, svc.IsTokenRevoked(access))

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(time.Minute, time.Hour, "crestvault", "crestvault-api", false, "", "", "")
	assert.Error(t, err)
}
