package service

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/config"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
)

func newTestAuth(t *testing.T) (*AuthService, *fakeUserRepo) {
	users := newFakeUserRepo()
	audit, _ := newTestAudit(t)
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "test",
	})
	svc := NewAuthService(users, jwt, auth.NewTOTP("clinicrx"), audit, metrics.NewCollector("test"), zap.NewNop())
	return svc, users
}

func TestAuth_SignUpAndSignIn(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := t.Context()

	u, pair, err := svc.SignUp(ctx, SignUpCommand{Email: " Agent@Clinic.test ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "agent@clinic.test", u.Email)
	assert.Equal(t, domain.RoleAgent, u.Role)
	assert.NotEmpty(t, pair.AccessToken)

	got, err := svc.SignIn(ctx, SignInCommand{Email: "agent@clinic.test", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.RefreshToken)

	refreshed, err := svc.Refresh(ctx, got.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, got.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_SignUpValidation(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, _, err := svc.SignUp(t.Context(), SignUpCommand{Email: "nope", Password: "short", Role: "doctor"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	_, _, err = svc.SignUp(t.Context(), SignUpCommand{Email: "a@b.test", Password: "12345678", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, _, err = svc.SignUp(t.Context(), SignUpCommand{Email: "A@B.test", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAuth_UnknownUser(t *testing.T) {
	svc, _ := newTestAuth(t)
	_, err := svc.SignIn(t.Context(), SignInCommand{Email: "ghost@clinic.test", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_Lockout(t *testing.T) {
	svc, users := newTestAuth(t)
	ctx := t.Context()
	now := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	u, _, err := svc.SignUp(ctx, SignUpCommand{Email: "agent@clinic.test", Password: "right-password"})
	require.NoError(t, err)

	for i := 0; i < maxFailedAttempts; i++ {
		_, err := svc.SignIn(ctx, SignInCommand{Email: u.Email, Password: "wrong-password"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LockedUntil)
	assert.Equal(t, now.Add(lockDuration), *stored.LockedUntil)

	_, err = svc.SignIn(ctx, SignInCommand{Email: u.Email, Password: "right-password"})
	assert.ErrorIs(t, err, ErrAccountLocked)

	now = now.Add(lockDuration + time.Second)
	_, err = svc.SignIn(ctx, SignInCommand{Email: u.Email, Password: "right-password"})
	require.NoError(t, err)

	stored, _ = users.GetByID(ctx, u.ID)
	assert.Nil(t, stored.LockedUntil)
	assert.Zero(t, stored.FailedLoginCount)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestAuth_Inactive(t *testing.T) {
	svc, users := newTestAuth(t)
	u, _, err := svc.SignUp(t.Context(), SignUpCommand{Email: "old@clinic.test", Password: "12345678"})
	require.NoError(t, err)

	u.IsActive = false
	require.NoError(t, users.UpdateSecurity(t.Context(), u))

	_, err = svc.SignIn(t.Context(), SignInCommand{Email: u.Email, Password: "12345678"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestAuth_MFA(t *testing.T) {
	svc, _ := newTestAuth(t)
	u, _, err := svc.SignUp(t.Context(), SignUpCommand{Email: "admin@clinic.test", Password: "12345678", Role: domain.RoleAdmin})
	require.NoError(t, err)
	ctx := domain.WithSession(t.Context(), domain.Session{UserID: u.ID, Email: u.Email, Role: u.Role})

	assert.ErrorIs(t, svc.ConfirmMFA(ctx, "123456"), ErrMFANotEnrolled)

	enr, err := svc.EnrollMFA(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ConfirmMFA(ctx, "000000x"), ErrInvalidMFACode)

	code, err := totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmMFA(ctx, code))

	_, err = svc.EnrollMFA(ctx)
	assert.ErrorIs(t, err, ErrMFAAlreadyEnabled)

	_, err = svc.SignIn(t.Context(), SignInCommand{Email: u.Email, Password: "12345678"})
	assert.ErrorIs(t, err, ErrMFARequired)

	_, err = svc.SignIn(t.Context(), SignInCommand{Email: u.Email, Password: "12345678", OTP: "999999x"})
	assert.ErrorIs(t, err, ErrInvalidMFACode)

	code, err = totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	_, err = svc.SignIn(t.Context(), SignInCommand{Email: u.Email, Password: "12345678", OTP: code})
	assert.NoError(t, err)
}

func TestAuth_MeRequiresSession(t *testing.T) {
	svc, _ := newTestAuth(t)
	_, err := svc.Me(t.Context())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, svc.SignOut(t.Context()), ErrUnauthenticated)
}
