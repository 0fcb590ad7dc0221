package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solarops/backend/internal/infrastructure/auth"
	"github.com/solarops/backend/internal/interfaces/http/dto"
)

// AuthHandler serves the operator login endpoint.
type AuthHandler struct {
	BaseHandler
	credentials *auth.CredentialChecker
	jwtService  *auth.JWTService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(credentials *auth.CredentialChecker, jwtService *auth.JWTService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		credentials: credentials,
		jwtService:  jwtService,
	}
}

// Login checks the operator credentials and issues a session token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.credentials.Check(req.Username, req.Password); err != nil {
		h.logger.Warn("failed login attempt",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()))
		h.Unauthorized(c, "Invalid username or password")
		return
	}

	token, err := h.jwtService.GenerateToken(req.Username)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, token)
}
