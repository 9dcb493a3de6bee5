package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/transport/http/middleware"
	"github.com/dnt-org/dnt-be/internal/usecase"
)

// qrPayloadScheme is the deep link embedded in the rendered QR code. The
// server returns the payload string only; image rendering is a client concern.
const qrPayloadScheme = "dnt://qr-login?session=%s"

// QRHandler exposes the QR login handshake endpoints.
type QRHandler struct {
	qr     *usecase.QRLoginService
	logger *zap.Logger
}

// NewQRHandler constructs QRHandler.
func NewQRHandler(qr *usecase.QRLoginService, logger *zap.Logger) *QRHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRHandler{qr: qr, logger: logger}
}

// RegisterRoutes binds the QR handshake routes.
func (h *QRHandler) RegisterRoutes(r *gin.RouterGroup) {
	qrGroup := r.Group("/qr")
	qrGroup.POST("/generate", h.generate)
	qrGroup.POST("/verify", h.verify)
	qrGroup.POST("/poll", h.poll)
}

func (h *QRHandler) generate(c *gin.Context) {
	session, err := h.qr.Generate(c.Request.Context())
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, QRGenerateResponse{
		SessionID: session.ID,
		Payload:   fmt.Sprintf(qrPayloadScheme, session.ID),
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *QRHandler) verify(c *gin.Context) {
	var req QRVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid qr verify payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	err := h.qr.Authorize(c.Request.Context(), req.SessionID, usecase.LoginInput{
		CCCD:      req.CCCD,
		Password:  req.Password,
		SourceIP:  reqCtx.IP,
		UserAgent: reqCtx.UserAgent,
	})
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "qr session authorized"})
}

func (h *QRHandler) poll(c *gin.Context) {
	var req QRPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid qr poll payload"))
		return
	}

	session, err := h.qr.Poll(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, usecase.ErrQRSessionPending) {
			c.JSON(http.StatusOK, QRPollResponse{Status: string(session.Status)})
			return
		}
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, QRPollResponse{
		Status: string(session.Status),
		Token:  session.Token,
		CCCD:   session.CCCD,
	})
}
