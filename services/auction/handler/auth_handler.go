package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"auctions/internal/auctionerrors"
	auth "auctions/internal/authService"
	"auctions/internal/models"
	"auctions/services/auction/helpers"
	"auctions/utils"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the session token for browser clients
const SessionCookie = "session"

var errUnauthenticated = fmt.Errorf("handler: %w", auctionerrors.ErrUnauthenticated)

type AuthServiceInterface interface {
	Register(ctx context.Context, input auth.RegisterInput) (models.User, error)
	Login(ctx context.Context, username, password string) (string, models.User, error)
	IssueToken(user models.User) (string, error)
}

type AuthHandler struct {
	service      AuthServiceInterface
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthHandler(service AuthServiceInterface, tokenTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

func (h *AuthHandler) setSession(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", h.secureCookie, true)
}

// LoginFormHandler handles GET /login
func (h *AuthHandler) LoginFormHandler(c *gin.Context) {
	helpers.Respond(c, http.StatusOK, "login.html", nil, "login form")
}

// LoginHandler handles POST /login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.RespondForm(c, "login.html", nil, auctionerrors.ErrInvalidCredentials)
		utils.Warn("LoginHandler: binding error", map[string]any{"error": err.Error()})
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		helpers.RespondForm(c, "login.html", nil, err)
		utils.Warn("LoginHandler: login failed", map[string]any{
			"username": req.Username,
			"error":    err.Error(),
		})
		return
	}

	h.setSession(c, token, int(h.tokenTTL.Seconds()))
	helpers.Redirect(c, "/", http.StatusOK, helpers.LoginResponse{Token: token, User: user}, "logged in successfully")
	helpers.LogSuccess("LoginHandler", "user logged in", map[string]any{"user_id": user.ID})
}

// RegisterFormHandler handles GET /register
func (h *AuthHandler) RegisterFormHandler(c *gin.Context) {
	helpers.Respond(c, http.StatusOK, "register.html", nil, "registration form")
}

// RegisterHandler handles POST /register and logs the new user in
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), auth.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		Confirmation: req.Confirmation,
	})
	if err != nil {
		helpers.RespondForm(c, "register.html", nil, err)
		utils.Warn("RegisterHandler: registration failed", map[string]any{
			"username": req.Username,
			"error":    err.Error(),
		})
		return
	}

	token, err := h.service.IssueToken(user)
	if err != nil {
		fail(c, "RegisterHandler", "failed to issue token", err, map[string]any{"user_id": user.ID})
		return
	}

	h.setSession(c, token, int(h.tokenTTL.Seconds()))
	helpers.Redirect(c, "/", http.StatusCreated, helpers.LoginResponse{Token: token, User: user}, "registered successfully")
	helpers.LogSuccess("RegisterHandler", "user registered", map[string]any{"user_id": user.ID})
}

// LogoutHandler handles POST /logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	h.setSession(c, "", -1)
	helpers.Redirect(c, "/", http.StatusOK, nil, "logged out successfully")
}
