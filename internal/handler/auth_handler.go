package handler

import (
	"context"
	"net/http"

	"bizportal/internal/model"
	"bizportal/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	Me(ctx context.Context, userID int) (*model.User, error)
	Logout(ctx context.Context, claims *util.Claims) error
}

type AuthHandler struct {
	svc    AuthService
	logger *zap.Logger
}

func NewAuthHandler(svc AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		badRequest(c, "email and password required")
		return
	}

	token, user, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "Login", err)
		return
	}

	c.SetCookie(util.SessionCookieName, token, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), c.GetInt(CtxUserID))
	if err != nil {
		respondError(c, h.logger, "Me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not authenticated"})
		return
	}
	if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, h.logger, "Logout", err)
		return
	}
	c.SetCookie(util.SessionCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
