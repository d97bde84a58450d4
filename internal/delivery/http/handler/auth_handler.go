package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"service-template/internal/config"
	"service-template/internal/logger"
	"service-template/internal/middleware"
	"service-template/internal/token"
	"service-template/internal/usecase/auth"
	appErrors "service-template/pkg/errors"
	"service-template/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the slice of the auth use case the HTTP layer consumes.
type Service interface {
	Register(ctx context.Context, req *auth.RegisterRequest) (*auth.AuthResult, error)
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, error)
	RequestReset(ctx context.Context, req *auth.ForgotPasswordRequest) error
	RedeemReset(ctx context.Context, req *auth.ResetPasswordRequest) error
	ResolveRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	GetAllUsers(ctx context.Context) ([]*auth.UserResponse, error)
}

type AuthHandler struct {
	service Service
	config  *config.Config
}

func NewAuthHandler(service Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{service: service, config: cfg}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/reset-password", h.ResetPassword)
	}
}

func (h *AuthHandler) RegisterProtectedRoutes(router *gin.RouterGroup) {
	router.GET("/auth/me", h.Me)
}

func (h *AuthHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.GET("/users", h.GetAllUsers)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)

	result, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.setAuthCookies(c, result.Tokens)
	utils.SuccessResponse(c, http.StatusCreated, "Account created successfully", result.User)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)

	result, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.setAuthCookies(c, result.Tokens)
	utils.SuccessResponse(c, http.StatusOK, "Login successful", result.User)
}

// Refresh exchanges the refresh token cookie (or bearer header) for a new
// access token and re-sets the access cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Refresh token required")
		return
	}

	accessToken, expiresAt, err := h.service.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.setCookie(c, middleware.AccessTokenCookie, accessToken, time.Until(expiresAt))
	utils.SuccessResponse(c, http.StatusOK, "Token refreshed successfully", gin.H{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	})
}

// Logout clears both token cookies. There is no server-side session state to
// invalidate; the bearer tokens expire on their own.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearCookie(c, middleware.AccessTokenCookie)
	h.clearCookie(c, middleware.RefreshTokenCookie)

	utils.SuccessResponse(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	roles, err := h.service.ResolveRoles(c.Request.Context(), user.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", &auth.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		IsActive:  user.IsActive,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
	})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = utils.SanitizeEmail(req.Email)

	if err := h.service.RequestReset(c.Request.Context(), &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "If the email exists, a reset link has been sent", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.RedeemReset(c.Request.Context(), &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Password reset successfully", nil)
}

func (h *AuthHandler) GetAllUsers(c *gin.Context) {
	users, err := h.service.GetAllUsers(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}

	return ""
}

// setAuthCookies delivers the token pair in two httpOnly cookies whose
// max-age matches each token's own TTL.
func (h *AuthHandler) setAuthCookies(c *gin.Context, pair *token.Pair) {
	h.setCookie(c, middleware.AccessTokenCookie, pair.AccessToken, time.Until(pair.AccessExpiresAt))
	h.setCookie(c, middleware.RefreshTokenCookie, pair.RefreshToken, time.Until(pair.RefreshExpiresAt))
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(maxAge.Seconds()), "/", "", h.config.Server.CookieSecure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.config.Server.CookieSecure, true)
}

func respondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, appErrors.ErrUserAlreadyExists):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErrors.ErrInvalidCredentials),
		errors.Is(err, appErrors.ErrUnauthenticated):
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, appErrors.ErrUserInactive),
		errors.Is(err, appErrors.ErrRegistrationDisabled):
		utils.ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, appErrors.ErrExpiredResetToken):
		utils.ErrorResponse(c, http.StatusGone, err.Error())
	case errors.Is(err, appErrors.ErrInvalidResetToken),
		errors.Is(err, appErrors.ErrResetTokenUsed):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) {
			utils.ErrorResponse(c, http.StatusBadRequest, appErr.Message)
			return
		}

		logger.Error("Internal server error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}
