package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrMFARequired        = errors.New("a one-time code is required for this account")
	ErrInvalidMFACode     = errors.New("invalid one-time code")
	ErrMFANotEnrolled     = errors.New("no authenticator enrolment in progress")
	ErrMFAAlreadyEnabled  = errors.New("two-factor authentication is already enabled")
)

const maxFailedAttempts = 5

const lockDuration = 15 * time.Minute

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateSecurity(ctx context.Context, u *domain.User) error
}

type SignUpCommand struct {
	Email    string
	Password string
	Role     domain.Role
}

type SignInCommand struct {
	Email    string
	Password string
	OTP      string
	IP       string
}

type AuthService struct {
	users   UserRepository
	tokens  *auth.JWTManager
	totp    *auth.TOTP
	audit   *AuditService
	metrics *metrics.Collector
	log     *zap.Logger
	now     func() time.Time
}

func NewAuthService(users UserRepository, tokens *auth.JWTManager, totp *auth.TOTP, audit *AuditService, m *metrics.Collector, log *zap.Logger) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		totp:    totp,
		audit:   audit,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *AuthService) SignUp(ctx context.Context, cmd SignUpCommand) (*domain.User, *domain.TokenPair, error) {
	email := normalizeEmail(cmd.Email)
	role := cmd.Role
	if role == "" {
		role = domain.RoleAgent
	}

	var errs []string
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		errs = append(errs, "email is invalid")
	}
	if err := auth.ValidatePasswordStrength(cmd.Password); err != nil {
		errs = append(errs, err.Error())
	}
	if !role.IsValid() {
		errs = append(errs, "role must be admin or agent")
	}
	if err := orNil(errs); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, nil, err
	}

	u := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("creating user: %w", err)
	}

	pair, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}

	actor := actorFor(ctx, u)
	s.audit.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		Changes:      map[string]string{"role": string(u.Role)},
		Actor:        &actor,
	})
	s.log.Info("user signed up",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
	)

	return u, pair, nil
}

func (s *AuthService) SignIn(ctx context.Context, cmd SignInCommand) (*domain.TokenPair, error) {
	now := s.now()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(cmd.Email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		auth.BurnTime(cmd.Password)
		s.countLogin("unknown_user")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.countLogin("inactive")
		return nil, ErrAccountInactive
	}

	if user.IsLocked(now) {
		s.countLogin("locked")
		return nil, ErrAccountLocked
	}

	if !auth.CheckPassword(user.PasswordHash, cmd.Password) {
		s.recordFailure(ctx, user, now, cmd.IP)
		s.countLogin("bad_password")
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if strings.TrimSpace(cmd.OTP) == "" {
			s.countLogin("mfa_required")
			return nil, ErrMFARequired
		}
		if !s.totp.Validate(strings.TrimSpace(cmd.OTP), user.MFASecret, now) {
			s.recordFailure(ctx, user, now, cmd.IP)
			s.countLogin("bad_otp")
			return nil, ErrInvalidMFACode
		}
	}

	user.FailedLoginCount = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	if err := s.users.UpdateSecurity(ctx, user); err != nil {
		s.log.Error("failed to record successful login", zap.Error(err))
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	actor := actorFor(ctx, user)
	actor.IPAddress = cmd.IP
	s.audit.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		Actor:        &actor,
	})
	s.countLogin("success")
	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", cmd.IP),
	)

	return pair, nil
}

// recordFailure counts a failed attempt and locks the account once the
// threshold is reached.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, now time.Time, ip string) {
	user.FailedLoginCount++
	if user.FailedLoginCount >= maxFailedAttempts {
		until := now.Add(lockDuration)
		user.LockedUntil = &until
		user.FailedLoginCount = 0
		s.log.Warn("account locked after repeated failures",
			zap.String("user_id", user.ID.String()),
			zap.Time("locked_until", until),
		)
	}
	if err := s.users.UpdateSecurity(ctx, user); err != nil {
		s.log.Error("failed to record login failure", zap.Error(err))
	}
	s.log.Warn("failed login attempt",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)
}

// Refresh issues a new token pair given a valid refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate user is still active
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// SignOut records the logout. Tokens are stateless and simply expire.
func (s *AuthService) SignOut(ctx context.Context) error {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	s.audit.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionLogout,
		ResourceType: "user",
		ResourceID:   sess.UserID.String(),
	})
	return nil
}

func (s *AuthService) Me(ctx context.Context) (*domain.User, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, sess.UserID)
}

// EnrollMFA starts TOTP enrolment. The secret is stored but not enforced
// until ConfirmMFA sees a valid code.
func (s *AuthService) EnrollMFA(ctx context.Context) (*auth.MFAEnrollment, error) {
	user, err := s.Me(ctx)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	enr, err := s.totp.Generate(user.Email)
	if err != nil {
		return nil, err
	}
	user.MFASecret = enr.Secret
	if err := s.users.UpdateSecurity(ctx, user); err != nil {
		return nil, fmt.Errorf("storing mfa secret: %w", err)
	}
	return enr, nil
}

func (s *AuthService) ConfirmMFA(ctx context.Context, code string) error {
	user, err := s.Me(ctx)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if user.MFASecret == "" {
		return ErrMFANotEnrolled
	}
	if !s.totp.Validate(strings.TrimSpace(code), user.MFASecret, s.now()) {
		return ErrInvalidMFACode
	}

	user.MFAEnabled = true
	if err := s.users.UpdateSecurity(ctx, user); err != nil {
		return fmt.Errorf("enabling mfa: %w", err)
	}
	s.audit.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionUpdate,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		Changes:      map[string]bool{"mfa_enabled": true},
	})
	return nil
}

func (s *AuthService) issue(u *domain.User) (*domain.TokenPair, error) {
	pair, err := s.tokens.GenerateTokenPair(&domain.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	})
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}
	return pair, nil
}

func (s *AuthService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

// actorFor builds the audit actor for u, keeping request metadata already
// in the context.
func actorFor(ctx context.Context, u *domain.User) domain.Session {
	sess, _ := domain.SessionFrom(ctx)
	sess.UserID = u.ID
	sess.Email = u.Email
	sess.Role = u.Role
	return sess
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
