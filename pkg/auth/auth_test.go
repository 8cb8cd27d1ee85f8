package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/config"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
)

func testManager() *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "clinicrx-test",
	})
}

func TestJWT_RoundTrip(t *testing.T) {
	m := testManager()
	claims := &domain.Claims{UserID: uuid.New(), Email: "agent@clinic.test", Role: domain.RoleAgent}

	pair, err := m.GenerateTokenPair(claims)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	got, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, claims, got)

	got, err = m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, got.UserID)
}

func TestJWT_TypeMismatch(t *testing.T) {
	m := testManager()
	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestJWT_Expired(t *testing.T) {
	m := testManager()
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }

	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAgent})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWT_WrongSecret(t *testing.T) {
	pair, err := testManager().GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAgent})
	require.NoError(t, err)

	other := NewJWTManager(config.JWTConfig{Secret: "another-secret", Issuer: "clinicrx-test"})
	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = testManager().ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))

	assert.ErrorIs(t, ValidatePasswordStrength("short"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePasswordStrength("12345678"))
}

func TestTOTP(t *testing.T) {
	tp := NewTOTP("clinicrx")
	enr, err := tp.Generate("admin@clinic.test")
	require.NoError(t, err)
	assert.NotEmpty(t, enr.Secret)
	assert.Contains(t, enr.URL, "otpauth://totp/")

	now := time.Now()
	code, err := totp.GenerateCode(enr.Secret, now)
	require.NoError(t, err)

	assert.True(t, tp.Validate(code, enr.Secret, now))
	assert.False(t, tp.Validate(code, enr.Secret, now.Add(5*time.Minute)))
	assert.False(t, tp.Validate("000000x", enr.Secret, now))
}
