package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/transport/http/middleware"
	"github.com/dnt-org/dnt-be/internal/usecase"
)

// RecoveryHandler exposes the recovery-string, OTP, and password-reset endpoints.
type RecoveryHandler struct {
	recovery *usecase.RecoveryService
	logger   *zap.Logger
}

// NewRecoveryHandler constructs RecoveryHandler.
func NewRecoveryHandler(recovery *usecase.RecoveryService, logger *zap.Logger) *RecoveryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryHandler{recovery: recovery, logger: logger}
}

// RegisterRoutes binds the recovery flow routes. The setup endpoint requires a
// session; the flow endpoints are reachable by locked-out callers.
func (h *RecoveryHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc, flowMiddlewares ...gin.HandlerFunc) {
	recoverGroup := r.Group("/recover")
	if len(flowMiddlewares) > 0 {
		recoverGroup.Use(flowMiddlewares...)
	}
	recoverGroup.POST("/verify", h.verifyRecovery)
	recoverGroup.POST("/otp", h.verifyOTP)
	recoverGroup.POST("/reset", h.resetPassword)

	r.POST("/recovery-string", authMiddleware, h.setRecoveryString)
}

func (h *RecoveryHandler) verifyRecovery(c *gin.Context) {
	var req VerifyRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid recovery payload"))
		return
	}

	result, err := h.recovery.VerifyRecovery(c.Request.Context(), usecase.VerifyRecoveryInput{
		BankNumber:     req.BankNumber,
		RecoveryString: req.RecoveryString,
		RequestContext: requestContext(c),
	})
	if err != nil {
		// An unknown bank number maps to the same code as a wrong recovery
		// string so the endpoint cannot be used to enumerate accounts.
		RespondWithSecurityError(c, h.logger, err, ErrorCase{
			Err:     usecase.ErrAccountNotFound,
			Status:  http.StatusBadRequest,
			Code:    "INVALID_RECOVERY_STRING",
			Message: "incorrect recovery string",
		})
		return
	}

	c.JSON(http.StatusOK, VerifyRecoveryResponse{
		VerificationResult: true,
		ResetToken:         result.ResetToken,
		ExpiresAt:          result.ExpiresAt,
	})
}

func (h *RecoveryHandler) verifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid otp payload"))
		return
	}

	result, err := h.recovery.VerifyOTP(c.Request.Context(), usecase.VerifyOTPInput{
		ResetToken:     req.ResetToken,
		OTP:            req.OTP,
		RequestContext: requestContext(c),
	})
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, VerifyOTPResponse{
		VerificationResult: true,
		ResetToken:         result.ResetToken,
		ExpiresAt:          result.ExpiresAt,
	})
}

func (h *RecoveryHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid reset payload"))
		return
	}

	err := h.recovery.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		ResetToken:     req.ResetToken,
		NewPassword:    req.NewPassword,
		RequestContext: requestContext(c),
	})
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "password updated"})
}

func (h *RecoveryHandler) setRecoveryString(c *gin.Context) {
	var req SetRecoveryStringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid recovery string payload"))
		return
	}

	cccd := middleware.SessionCCCD(c)
	if cccd == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_SESSION", "invalid or expired session token"))
		return
	}

	err := h.recovery.SetRecoveryString(c.Request.Context(), usecase.SetRecoveryStringInput{
		CCCD:              cccd,
		CurrentPassword:   req.CurrentPassword,
		NewRecoveryString: req.RecoveryString,
		RequestContext:    requestContext(c),
	})
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "recovery string updated"})
}

func requestContext(c *gin.Context) usecase.RequestContext {
	reqCtx := middleware.GetRequestContext(c)
	return usecase.RequestContext{
		SourceIP:  reqCtx.IP,
		UserAgent: reqCtx.UserAgent,
	}
}
