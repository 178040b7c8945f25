package handlers

import (
	"errors"
	"net/http"

	"github.com/upscwallahhacker-cell/Desikart/internal/auth"
	"github.com/upscwallahhacker-cell/Desikart/internal/dto"
	"github.com/upscwallahhacker-cell/Desikart/internal/middleware"
	"github.com/upscwallahhacker-cell/Desikart/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenSource отдаёт access-токен текущей сессии для ответа клиенту.
type TokenSource interface {
	AccessToken() (string, bool)
}

type AuthHandler struct {
	sessions *session.Manager
	tokens   TokenSource
	log      *zap.Logger
}

func NewAuthHandler(sessions *session.Manager, tokens TokenSource, log *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, tokens: tokens, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid registration request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailInUse):
			c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		default:
			h.log.Error("registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError("registration failed"))
		}
		return
	}

	token, _ := h.tokens.AccessToken()
	c.JSON(http.StatusOK, dto.SessionResponse{User: *user, Token: token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	user, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTooManyRequests):
			c.JSON(http.StatusTooManyRequests, dto.NewRateLimitedError("too many login attempts, try again later"))
		case errors.Is(err, auth.ErrNotRegistered), errors.Is(err, auth.ErrInvalidCredential):
			c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error()))
		default:
			h.log.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError("login failed"))
		}
		return
	}

	token, _ := h.tokens.AccessToken()
	c.JSON(http.StatusOK, dto.SessionResponse{User: *user, Token: token})
}

// Federated — provider-driven вход (OAuth-попап на стороне провайдера).
func (h *AuthHandler) Federated(c *gin.Context) {
	user, err := h.sessions.SignInFederated(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrFederatedUnavailable):
			c.JSON(http.StatusServiceUnavailable, dto.NewUnavailableError(err.Error()))
		case errors.Is(err, auth.ErrPopupBlocked), errors.Is(err, auth.ErrPopupClosed):
			c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		case errors.Is(err, auth.ErrUnauthorizedOrigin):
			c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))
		default:
			h.log.Error("federated sign-in failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError("federated sign-in failed"))
		}
		return
	}

	token, _ := h.tokens.AccessToken()
	c.JSON(http.StatusOK, dto.SessionResponse{User: *user, Token: token})
}

// Logout закрывает только сессию владельца токена.
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	if err := h.sessions.SignOutUser(c.Request.Context(), uid); err != nil {
		h.log.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError("logout failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Me возвращает профиль владельца токена.
func (h *AuthHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserID)
	profile, err := h.sessions.ProfileByUID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("profile not found"))
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{User: *profile})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	uid := c.GetString(middleware.CtxUserID)
	user, err := h.sessions.UpdateProfileFor(c.Request.Context(), uid, session.ProfilePatch{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Pin:     req.Pin,
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrProfileUpdateFailed):
			c.JSON(http.StatusBadGateway, dto.NewInternalError("profile update failed"))
		default:
			h.log.Error("profile update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError("profile update failed"))
		}
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{User: *user})
}
