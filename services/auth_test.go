package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIAuthService_IssueAndValidate(t *testing.T) {
	svc := NewAPIAuthService("test-secret")
	require.True(t, svc.Enabled())

	token, err := svc.IssueToken("ops@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
}

func TestAPIAuthService_RejectsWrongSecret(t *testing.T) {
	token, err := NewAPIAuthService("secret-a").IssueToken("ops", time.Hour)
	require.NoError(t, err)

	_, err = NewAPIAuthService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestAPIAuthService_RejectsExpired(t *testing.T) {
	svc := NewAPIAuthService("test-secret")
	token, err := svc.IssueToken("ops", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestAPIAuthService_ExtractTokenFromHeader(t *testing.T) {
	svc := NewAPIAuthService("test-secret")

	token, err := svc.ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = svc.ExtractTokenFromHeader("abc123")
	assert.Error(t, err)

	_, err = svc.ExtractTokenFromHeader("Basic abc123")
	assert.Error(t, err)
}

func TestAPIAuthService_Disabled(t *testing.T) {
	svc := NewAPIAuthService("")
	assert.False(t, svc.Enabled())

	_, err := svc.IssueToken("ops", time.Hour)
	assert.Error(t, err)
}
