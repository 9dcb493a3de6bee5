package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/infra/security"
	"github.com/dnt-org/dnt-be/internal/transport/http/middleware"
	"github.com/dnt-org/dnt-be/internal/usecase"
)

// AuthHandler exposes login, registration, and profile endpoints.
type AuthHandler struct {
	login        *usecase.LoginService
	registration *usecase.RegistrationService
	profile      *usecase.ProfileService
	tokens       *security.TokenManager
	logger       *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(login *usecase.LoginService, registration *usecase.RegistrationService, profile *usecase.ProfileService, tokens *security.TokenManager, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		login:        login,
		registration: registration,
		profile:      profile,
		tokens:       tokens,
		logger:       logger,
	}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc, loginMiddlewares ...gin.HandlerFunc) {
	r.POST("/register", h.register)

	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.loginHandler)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.loginHandler)
	}

	r.GET("/me", authMiddleware, h.me)
}

func (h *AuthHandler) loginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid login payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	result, err := h.login.Login(c.Request.Context(), usecase.LoginInput{
		CCCD:      req.CCCD,
		Password:  req.Password,
		SourceIP:  reqCtx.IP,
		UserAgent: reqCtx.UserAgent,
	})
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   result.Token,
		Account: newAccountSummary(result.Account),
	})
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "VALIDATION_ERROR", "invalid registration payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		CCCD:         req.CCCD,
		Username:     req.Username,
		FullName:     req.FullName,
		MobileNumber: req.MobileNumber,
		BankNumber:   req.BankNumber,
		BankName:     req.BankName,
		ReferenceID:  req.ReferenceID,
		Password:     req.Password,
	})
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	resp := RegisterResponse{
		Success: true,
		Account: newAccountSummary(*account),
	}

	if h.tokens != nil {
		token, err := h.tokens.Issue(account.ID, account.CCCD)
		if err != nil {
			h.logger.Error("issue session token after registration failed", zap.Error(err))
		} else {
			resp.Token = token
		}
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) me(c *gin.Context) {
	cccd := middleware.SessionCCCD(c)
	if cccd == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "INVALID_SESSION", "invalid or expired session token"))
		return
	}

	account, err := h.profile.Get(c.Request.Context(), cccd)
	if err != nil {
		RespondWithSecurityError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}
