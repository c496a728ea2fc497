package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ani-canvas-backend/internal/auth"
	"ani-canvas-backend/internal/middleware"
	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
)

type AuthHandler struct {
	authService *auth.Service
	hub         *realtime.Hub
}

func NewAuthHandler(authService *auth.Service, hub *realtime.Hub) *AuthHandler {
	return &AuthHandler{authService: authService, hub: hub}
}

// SignUp creates the auth account and its user document. The password
// confirmation is validated before any backend call, and the email collision
// check runs before account creation.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	if req.Password != req.PasswordConfirm {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: auth.ErrPasswordConfirm.Error()})
		return
	}

	available, err := h.authService.CheckEmailCollision(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to check email", Message: err.Error()})
		return
	}
	if !available {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "email already in use"})
		return
	}

	user, err := h.authService.CreateAccount(req.Email, req.Name, req.Password, req.PasswordConfirm)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordConfirm) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create account", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.SignUpResponse{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	tokens, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "failed to sign in", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.SignInResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		SessionID:    h.authService.EnsureSessionID(tokens.UserID),
	})
}

// OAuth returns the provider authorization URL for the popup flow.
func (h *AuthHandler) OAuth(c *gin.Context) {
	provider := c.Param("provider")
	url, err := h.authService.SignInWithOAuth(provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to start oauth", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.OAuthResponse{AuthorizationURL: url, Provider: provider})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	if err := h.authService.SignOut(bearerToken(c), userID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to sign out", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	if err := h.authService.SendPasswordReset(req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to send password reset", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h *AuthHandler) EmailVerification(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	if err := h.authService.SendEmailVerification(req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to send verification email", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req models.PasswordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	if err := h.authService.UpdatePassword(bearerToken(c), req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to update password", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// ProfileEvents streams the caller's profile document over a websocket: the
// current state first, then every live change. A missing document is
// materialized from the token identity before the stream starts.
func (h *AuthHandler) ProfileEvents(c *gin.Context) {
	identity := auth.Identity{
		ID:    c.GetString(middleware.UserIDKey),
		Email: c.GetString(middleware.UserEmailKey),
	}

	user, events, cancel, err := h.authService.WatchUser(identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to watch profile", Message: err.Error()})
		return
	}

	initial := realtime.Event{
		Type:  realtime.EventSnapshot,
		Path:  user.Ref,
		Value: user,
	}
	h.hub.StreamWS(c.Writer, c.Request, &initial, events, cancel)
}

// EmailCheck reports whether an address is free to register.
func (h *AuthHandler) EmailCheck(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "email is required"})
		return
	}

	available, err := h.authService.CheckEmailCollision(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to check email", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.EmailCheckResponse{Email: email, Available: available})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
