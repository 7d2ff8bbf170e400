package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, RoleAdmin)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Minute).GenerateAccessToken(uuid.New(), RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Minute).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, err := m.GenerateAccessToken(uuid.New(), RoleAdmin)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_MissingSecret(t *testing.T) {
	m := NewJWTManager("", time.Minute)
	_, err := m.GenerateAccessToken(uuid.New(), RoleAdmin)
	assert.ErrorIs(t, err, ErrSecretMissing)

	_, err = m.ValidateToken("a.b.c")
	assert.ErrorIs(t, err, ErrSecretMissing)
}
