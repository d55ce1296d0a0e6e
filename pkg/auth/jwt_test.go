package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tok, err := auth.GenerateToken("ops", auth.RoleStaff)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, auth.RoleStaff, claims.Role)
	assert.Equal(t, "beanleaf", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "one")
	tok, err := auth.GenerateToken("ops", auth.RoleStaff)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "two")
	_, err = auth.ValidateToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = auth.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestCheckAPIKey(t *testing.T) {
	hash, err := auth.HashAPIKey("s3cret-key")
	require.NoError(t, err)

	assert.True(t, auth.CheckAPIKey(hash, "s3cret-key"))
	assert.False(t, auth.CheckAPIKey(hash, "guess"))
	assert.False(t, auth.CheckAPIKey("", "s3cret-key"))
	assert.False(t, auth.CheckAPIKey(hash, ""))
}
