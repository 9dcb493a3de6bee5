package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/transport/http/middleware"
)

// ErrorResponse is the uniform failure payload: a machine code, a human
// message, and optional context fields depending on the failure kind.
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message,omitempty"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
	RemainingMinutes  *int   `json:"remainingMinutes,omitempty"`
	Reason            string `json:"reason,omitempty"`
	TraceID           string `json:"traceId,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, code, message string) ErrorResponse {
	return ErrorResponse{
		Error:   code,
		Message: message,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple success payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AccountSummary describes the sanitized view of an account returned by the API.
type AccountSummary struct {
	ID           string     `json:"id"`
	CCCD         string     `json:"cccd"`
	Username     string     `json:"username"`
	FullName     string     `json:"fullName"`
	MobileNumber *string    `json:"mobileNumber,omitempty"`
	BankNumber   *string    `json:"bankNumber,omitempty"`
	BankName     *string    `json:"bankName,omitempty"`
	Confirmed    bool       `json:"confirmed"`
	RegisteredAt time.Time  `json:"registeredAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:           account.ID,
		CCCD:         account.CCCD,
		Username:     account.Username,
		FullName:     account.FullName,
		MobileNumber: account.MobileNumber,
		BankNumber:   account.BankNumber,
		BankName:     account.BankName,
		Confirmed:    account.Confirmed,
		RegisteredAt: account.RegisteredAt,
		LastLogin:    account.LastLogin,
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	CCCD     string `json:"cccd" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned for a successful login.
type LoginResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	Account AccountSummary `json:"account"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	CCCD         string `json:"cccd" binding:"required"`
	Username     string `json:"username"`
	FullName     string `json:"fullName" binding:"required"`
	MobileNumber string `json:"mobileNumber"`
	BankNumber   string `json:"bankNumber"`
	BankName     string `json:"bankName"`
	ReferenceID  string `json:"referenceId"`
	Password     string `json:"password" binding:"required"`
}

// RegisterResponse contains the created account and its first session token.
type RegisterResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token,omitempty"`
	Account AccountSummary `json:"account"`
}

// VerifyRecoveryRequest identifies the account by bank number and carries the
// recovery string to check.
type VerifyRecoveryRequest struct {
	BankNumber     string `json:"bankNumber" binding:"required"`
	RecoveryString string `json:"recoveryString" binding:"required"`
}

// VerifyRecoveryResponse carries the reset token issued on a successful check.
type VerifyRecoveryResponse struct {
	VerificationResult bool      `json:"verificationResult"`
	ResetToken         string    `json:"resetToken"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// VerifyOTPRequest carries the reset token and submitted one-time code.
type VerifyOTPRequest struct {
	ResetToken string `json:"resetToken" binding:"required"`
	OTP        string `json:"otp" binding:"required"`
}

// VerifyOTPResponse carries the rotated reset token.
type VerifyOTPResponse struct {
	VerificationResult bool      `json:"verificationResult"`
	ResetToken         string    `json:"resetToken"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// ResetPasswordRequest consumes a reset token with the new password.
type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// SetRecoveryStringRequest installs a new recovery string for the
// authenticated account.
type SetRecoveryStringRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	RecoveryString  string `json:"recoveryString" binding:"required"`
}

// QRGenerateResponse returns the handshake session and the payload the client
// renders as a QR code.
type QRGenerateResponse struct {
	SessionID string    `json:"sessionId"`
	Payload   string    `json:"payload"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// QRVerifyRequest is submitted by the mobile device to authorize a session.
type QRVerifyRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	CCCD      string `json:"cccd" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// QRPollRequest is submitted by the waiting web client.
type QRPollRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// QRPollResponse reports the handshake state; token is set once authenticated.
type QRPollResponse struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
	CCCD   string `json:"cccd,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
