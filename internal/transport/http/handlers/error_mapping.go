package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/infra/security"
	"github.com/dnt-org/dnt-be/internal/transport/http/middleware"
	"github.com/dnt-org/dnt-be/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response payload.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// RespondWithSecurityError resolves an error from the login/recovery flows
// into the wire taxonomy. Overrides are checked first so individual endpoints
// can remap a sentinel (e.g. hiding account existence behind a generic code).
func RespondWithSecurityError(c *gin.Context, log *zap.Logger, err error, overrides ...ErrorCase) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range overrides {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Code, cs.Message))
			return
		}
	}

	var validation *usecase.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", validation.Error()))
		return
	}

	var policy *security.PolicyViolationError
	if errors.As(err, &policy) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "PASSWORD_POLICY_FAILED", policy.Message))
		return
	}

	var invalidCreds *usecase.InvalidCredentialsError
	if errors.As(err, &invalidCreds) {
		resp := NewErrorResponse(c, "INVALID_CREDENTIALS", "incorrect cccd or password")
		remaining := invalidCreds.AttemptsRemaining
		resp.AttemptsRemaining = &remaining
		c.JSON(http.StatusUnauthorized, resp)
		return
	}

	var invalidRecovery *usecase.InvalidRecoveryStringError
	if errors.As(err, &invalidRecovery) {
		resp := NewErrorResponse(c, "INVALID_RECOVERY_STRING", "incorrect recovery string")
		remaining := invalidRecovery.AttemptsRemaining
		resp.AttemptsRemaining = &remaining
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	var tempBlocked *usecase.TempBlockedError
	if errors.As(err, &tempBlocked) {
		resp := NewErrorResponse(c, "TEMP_BLOCKED", "account temporarily blocked")
		minutes := tempBlocked.RemainingMinutes
		resp.RemainingMinutes = &minutes
		c.JSON(http.StatusForbidden, resp)
		return
	}

	var recoveryRequired *usecase.RecoveryRequiredError
	if errors.As(err, &recoveryRequired) {
		resp := NewErrorResponse(c, "RECOVERY_REQUIRED", "account recovery required before login")
		resp.Reason = recoveryRequired.Reason
		c.JSON(http.StatusForbidden, resp)
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_CREDENTIALS", "incorrect cccd or password"))
	case errors.Is(err, usecase.ErrPermanentlyBlocked):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "PERMANENTLY_BLOCKED", "account permanently blocked, contact support"))
	case errors.Is(err, usecase.ErrRecoveryNotConfigured):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "RECOVERY_NOT_CONFIGURED", "no recovery string configured for this account"))
	case errors.Is(err, usecase.ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_RESET_TOKEN", "reset token is invalid"))
	case errors.Is(err, usecase.ErrResetTokenExpired):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "RESET_TOKEN_EXPIRED", "reset token has expired"))
	case errors.Is(err, usecase.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "INVALID_OTP", "incorrect verification code"))
	case errors.Is(err, usecase.ErrPasswordSameAsPrevious):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "PASSWORD_SAME_AS_PREVIOUS", "new password must differ from the current password"))
	case errors.Is(err, usecase.ErrAccountExists):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "ACCOUNT_EXISTS", "an account with this cccd already exists"))
	case errors.Is(err, usecase.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "ACCOUNT_NOT_FOUND", "account not found"))
	case errors.Is(err, usecase.ErrQRSessionNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "QR_SESSION_NOT_FOUND", "qr session not found or expired"))
	case errors.Is(err, security.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_SESSION", "invalid or expired session token"))
	default:
		if log != nil {
			log.Error("unhandled request error",
				zap.Error(err),
				zap.String("trace_id", middleware.GetTraceID(c)),
				zap.String("path", c.Request.URL.Path))
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "INTERNAL_ERROR", "internal server error"))
	}
}
