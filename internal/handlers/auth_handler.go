package handlers

import (
	"crypto/subtle"
	"net/http"

	"project-management-api/internal/apperr"
	"project-management-api/internal/auth"
	"project-management-api/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterRequest represents the sign-up payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// OAuthRequest is sent by the trusted sign-in bridge after a provider login.
type OAuthRequest struct {
	Provider string `json:"provider" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Image    string `json:"image"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token   string             `json:"token"`
	User    models.UserSummary `json:"user"`
	Message string             `json:"message"`
}

const headerBridgeSecret = "X-Auth-Bridge-Secret"

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, token, int(h.auth.Tokens().TTL().Seconds()), "/", "", !h.cfg.Server.Dev, true)
}

// Register handles POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}

	reg, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, reg.Token)
	c.JSON(http.StatusCreated, gin.H{
		"token":     reg.Token,
		"user":      reg.User.Summary(),
		"workspace": reg.Workspace,
		"message":   "Registration successful",
	})
}

// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Authorize(c.Request.Context(), auth.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(c, err)
		return
	}
	if user == nil {
		h.fail(c, apperr.New(apperr.KindUnauthenticated, "Invalid email or password"))
		return
	}

	token, err := h.auth.Tokens().GenerateToken(user)
	if err != nil {
		h.fail(c, apperr.Wrap(err, apperr.KindInternal, "Failed to generate token"))
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		User:    user.Summary(),
		Message: "Login successful",
	})
}

// OAuthSignIn handles POST /api/auth/oauth. Only the sign-in bridge holding the
// shared secret may call it.
func (h *Handler) OAuthSignIn(c *gin.Context) {
	secret := h.cfg.Auth.OAuthBridgeSecret
	given := c.GetHeader(headerBridgeSecret)
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(given)) != 1 {
		h.fail(c, apperr.Forbidden("Provider sign-in is not allowed"))
		return
	}

	var req OAuthRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, created, err := h.auth.SignInWithProvider(c.Request.Context(), auth.Profile{
		Provider: req.Provider,
		Email:    req.Email,
		Name:     req.Name,
		Image:    req.Image,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := h.auth.Tokens().GenerateToken(user)
	if err != nil {
		h.fail(c, apperr.Wrap(err, apperr.KindInternal, "Failed to generate token"))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"token":   token,
		"user":    user.Summary(),
		"created": created,
	})
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", !h.cfg.Server.Dev, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Session handles GET /api/auth/session
func (h *Handler) Session(c *gin.Context) {
	user, err := h.auth.User(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Summary()})
}
