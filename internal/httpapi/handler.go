// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/helmgate/helmgate/internal/auth"
	"github.com/helmgate/helmgate/internal/observability"
	"github.com/helmgate/helmgate/pkg/errutil"
)

// Cookie names for the token pair.
const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// Handler wires HTTP routes to the account services.
type Handler struct {
	sessions     *auth.Service
	verification *auth.VerificationService
	codec        *auth.TokenCodec
	metrics      *observability.Metrics
	secure       bool
	logger       *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil when the
// observability server is disabled.
func NewHandler(sessions *auth.Service, verification *auth.VerificationService, codec *auth.TokenCodec, metrics *observability.Metrics, secureCookies bool, logger *slog.Logger) (*Handler, error) {
	if sessions == nil {
		return nil, oops.Errorf("session service is required")
	}
	if verification == nil {
		return nil, oops.Errorf("verification service is required")
	}
	if codec == nil {
		return nil, oops.Errorf("token codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:     sessions,
		verification: verification,
		codec:        codec,
		metrics:      metrics,
		secure:       secureCookies,
		logger:       logger,
	}, nil
}

// RegisterRoutes attaches all routes to the engine.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), h.instrument())

	api := router.Group("/api/v1/auth")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/refresh-token", h.refreshToken)
		api.POST("/forgot-password", h.forgotPassword)
		api.POST("/reset-password/:token", h.resetPassword)
		api.GET("/verify-email/:token", h.verifyEmail)

		authed := api.Group("", h.requireAuth())
		{
			authed.POST("/logout", h.logout)
			authed.POST("/change-password", h.changePassword)
			authed.POST("/resend-email-verification", h.resendEmailVerification)
			authed.GET("/current-user", h.currentUser)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.count(func(m *observability.Metrics) { m.RegistrationsTotal.WithLabelValues("invalid").Inc() })
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, username and password are required"})
		return
	}

	view, err := h.sessions.Register(c.Request.Context(), req.Email, req.Username, req.Password, auth.RoleMember)
	if err != nil {
		h.count(func(m *observability.Metrics) { m.RegistrationsTotal.WithLabelValues("error").Inc() })
		h.writeError(c, err)
		return
	}

	h.count(func(m *observability.Metrics) { m.RegistrationsTotal.WithLabelValues("ok").Inc() })
	c.JSON(http.StatusCreated, gin.H{"user": view})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	pair, view, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.count(func(m *observability.Metrics) { m.LoginsTotal.WithLabelValues("denied").Inc() })
		// Unknown account and wrong password surface identically so the
		// endpoint cannot be used to probe for registered emails.
		switch errutil.Code(err) {
		case auth.CodeNotFound, auth.CodeInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":  auth.CodeInvalidCredentials,
				"error": "invalid email or password",
			})
		default:
			h.writeError(c, err)
		}
		return
	}

	h.count(func(m *observability.Metrics) { m.LoginsTotal.WithLabelValues("ok").Inc() })
	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"user": view, "tokens": pair})
}

func (h *Handler) logout(c *gin.Context) {
	accountID := mustAccountID(c)

	if err := h.sessions.Logout(c.Request.Context(), accountID); err != nil {
		h.writeError(c, err)
		return
	}

	h.clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	// Body is optional; the cookie is the fallback.
	_ = c.ShouldBindJSON(&req) //nolint:errcheck // Empty body falls through to cookie lookup

	presented := req.RefreshToken
	if presented == "" {
		presented, _ = c.Cookie(refreshCookie) //nolint:errcheck // Missing cookie handled below
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), presented)
	if err != nil {
		h.count(func(m *observability.Metrics) { m.RefreshesTotal.WithLabelValues("denied").Inc() })
		h.writeError(c, err)
		return
	}

	h.count(func(m *observability.Metrics) { m.RefreshesTotal.WithLabelValues("ok").Inc() })
	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"tokens": pair})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	// The response is identical for known and unknown emails.
	if _, err := h.verification.IssuePasswordReset(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "if the email is registered, a reset link has been sent"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	err := h.verification.RedeemPasswordReset(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		h.count(func(m *observability.Metrics) { m.RedemptionsTotal.WithLabelValues("reset", "error").Inc() })
		h.writeError(c, err)
		return
	}

	h.count(func(m *observability.Metrics) { m.RedemptionsTotal.WithLabelValues("reset", "ok").Inc() })
	c.JSON(http.StatusOK, gin.H{"message": "password has been reset, please log in"})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	err := h.verification.RedeemEmailVerification(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.count(func(m *observability.Metrics) { m.RedemptionsTotal.WithLabelValues("verification", "error").Inc() })
		h.writeError(c, err)
		return
	}

	h.count(func(m *observability.Metrics) { m.RedemptionsTotal.WithLabelValues("verification", "ok").Inc() })
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required"})
		return
	}

	err := h.verification.ChangePassword(c.Request.Context(), mustAccountID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (h *Handler) resendEmailVerification(c *gin.Context) {
	_, err := h.verification.IssueEmailVerification(c.Request.Context(), mustAccountID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}

func (h *Handler) currentUser(c *gin.Context) {
	view, err := h.sessions.CurrentAccount(c.Request.Context(), mustAccountID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": view})
}

// writeError maps service error codes onto HTTP statuses. The response
// carries the code and the coded message; wrapped causes stay in the log.
func (h *Handler) writeError(c *gin.Context, err error) {
	code := errutil.Code(err)

	status := http.StatusInternalServerError
	switch code {
	case auth.CodeNotFound:
		status = http.StatusNotFound
	case auth.CodeConflict, auth.CodeAlreadyVerified:
		status = http.StatusConflict
	case auth.CodeInvalidCredentials, auth.CodeExpiredToken, auth.CodeUnauthorized:
		status = http.StatusUnauthorized
	case auth.CodeInvalidToken,
		"ACCOUNT_INVALID_EMAIL", "ACCOUNT_INVALID_USERNAME", "ACCOUNT_INVALID_PASSWORD":
		status = http.StatusBadRequest
	}

	msg := "internal error"
	if status != http.StatusInternalServerError {
		if oopsErr, ok := oops.AsOops(err); ok {
			msg = oopsErr.Error()
		}
	} else {
		errutil.LogError(c.Request.Context(), h.logger, "request failed", err)
	}

	c.JSON(status, gin.H{"code": code, "error": msg})
}

// setTokenCookies stores the pair as HttpOnly cookies scoped to the API.
func (h *Handler) setTokenCookies(c *gin.Context, pair auth.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, pair.AccessToken, int(auth.DefaultAccessTokenTTL.Seconds()), "/", "", h.secure, true)
	c.SetCookie(refreshCookie, pair.RefreshToken, int(auth.DefaultRefreshTokenTTL.Seconds()), "/", "", h.secure, true)
}

func (h *Handler) clearTokenCookies(c *gin.Context) {
	c.SetCookie(accessCookie, "", -1, "/", "", h.secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", h.secure, true)
}

func (h *Handler) count(record func(*observability.Metrics)) {
	if h.metrics != nil {
		record(h.metrics)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
