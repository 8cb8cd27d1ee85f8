package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/auth"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	SignUp(ctx context.Context, cmd service.SignUpCommand) (*domain.User, *domain.TokenPair, error)
	SignIn(ctx context.Context, cmd service.SignInCommand) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	SignOut(ctx context.Context) error
	Me(ctx context.Context) (*domain.User, error)
	EnrollMFA(ctx context.Context) (*auth.MFAEnrollment, error)
	ConfirmMFA(ctx context.Context, code string) error
}

var _ AuthService = (*service.AuthService)(nil)

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// SignUp godoc
// POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindJSON(c, &req) {
		return
	}

	user, tokens, err := h.svc.SignUp(c.Request.Context(), service.SignUpCommand{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, signUpResponse{User: toUserResponse(user), Tokens: tokens})
}

// SignIn godoc
// POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.svc.SignIn(c.Request.Context(), service.SignInCommand{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
		IP:       c.ClientIP(),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tokens)
}

// Refresh godoc
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, tokens)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.svc.SignOut(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toUserResponse(user))
}

// EnrollMFA returns the TOTP secret and otpauth URL to show as a QR code.
func (h *AuthHandler) EnrollMFA(c *gin.Context) {
	enr, err := h.svc.EnrollMFA(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, enr)
}

func (h *AuthHandler) ConfirmMFA(c *gin.Context) {
	var req mfaConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.ConfirmMFA(c.Request.Context(), req.Code); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse[any]{Data: gin.H{"mfa_enabled": true}, Message: "two-factor authentication enabled"})
}
