package auth

import (
	"testing"
	"time"

	"github.com/safar/go-storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: 42, Role: models.RoleCustomer}

	token, err := manager.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
}

func TestTokenExpiry(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute)
	user := &models.User{ID: 1, Role: models.RoleCustomer}

	token, err := manager.Issue(user)
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)
	user := &models.User{ID: 1, Role: models.RoleAdmin}

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)

	_, err := manager.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = manager.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
	assert.False(t, CheckPassword("not-a-hash", "hunter2"))
}
