package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/internal/services"
)

// AuthHandler holds the auth service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// Login authenticates a member and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials models.Credentials
	if err := c.ShouldBindJSON(&credentials); err != nil {
		bindError(c, err, "Login")
		return
	}

	user, tokens, err := h.authService.Login(credentials)
	if err != nil {
		respondServiceError(c, err, "Login: Error from authService.Login")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

// Refresh exchanges a refresh token for a fresh token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "Refresh")
		return
	}

	tokens, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		respondServiceError(c, err, "Refresh: Error from authService.Refresh")
		return
	}
	c.JSON(http.StatusOK, tokens)
}
