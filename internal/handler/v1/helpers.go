package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/sus"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var parseErr *domain.ParseError
	if errors.As(err, &parseErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   parseErr.Error(),
			Code:    "INVALID_DATE",
			Details: map[string]string{"input": parseErr.Input},
		})
		return
	}

	switch {
	case errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, service.ErrMFAAlreadyEnabled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, patient.ErrInvalidBirthDate),
		errors.Is(err, service.ErrMFANotEnrolled),
		errors.Is(err, sus.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrMFARequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "MFA_REQUIRED"})

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidMFACode),
		errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			respondServiceError(c, parseErr)
			return false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

// parseQueryDate returns nil when key is absent. A present but malformed
// value is answered with 400 and ok is false.
func parseQueryDate(c *gin.Context, key string) (d *domain.Date, ok bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	parsed, err := domain.ParseDate(raw)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return &parsed, true
}
