package auth

import (
	"testing"
	"time"

	"project-management-api/internal/config"
	"project-management-api/internal/models"

	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(config.Default().Auth)
}

func TestGenerateAndValidateToken(t *testing.T) {
	issuer := testIssuer()
	user := &models.User{Base: models.Base{ID: "u-1"}, Name: "Alice", Email: "alice@example.com", Image: "a.png"}

	token, err := issuer.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "Alice", claims.Name)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "a.png", claims.Image)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := testIssuer().ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	issuer := testIssuer()
	issued := time.Now().Add(-48 * time.Hour)
	issuer.now = func() time.Time { return issued }
	token, err := issuer.GenerateToken(&models.User{Base: models.Base{ID: "u-1"}})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_WrongAudience(t *testing.T) {
	token, err := testIssuer().GenerateToken(&models.User{Base: models.Base{ID: "u-1"}})
	require.NoError(t, err)

	cfg := config.Default().Auth
	cfg.JWTAudience = "someone-else"
	_, err = NewTokenIssuer(cfg).ValidateToken(token)
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "correct horse"))
	require.False(t, CheckPassword(hash, "wrong horse"))
	require.False(t, CheckPassword("not-a-hash", "correct horse"))
}
