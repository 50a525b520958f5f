package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voyager-api/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
	jwtServ  *service.JWTService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
		jwtServ:  jwtServ,
	}
}

// SendOTP maneja POST /api/auth/send-otp.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		OTP      string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	err := h.authServ.RequestOTP(c.Request.Context(), req.Name, req.Email, req.Password, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "User already exists"})
		case errors.Is(err, service.ErrOTPRequired):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "OTP is required"})
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "OTP must be 6 digits"})
		case errors.Is(err, service.ErrPasswordTooShort), errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"msg": "Too many OTP requests, try again later"})
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Failed to send OTP email", "emailSent": false})
		default:
			h.logger.Error("send otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":       "OTP sent successfully! Please check your email inbox.",
		"emailSent": true,
	})
}

// VerifyOTP maneja POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Email and OTP are required"})
		return
	}

	user, err := h.authServ.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOTPNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "OTP not found"})
		case errors.Is(err, service.ErrOTPExpired):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "OTP expired"})
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid OTP"})
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		default:
			h.logger.Error("verify otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		}
		return
	}

	token, err := h.jwtServ.Generate(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// ResendOTP maneja POST /api/auth/resend-otp.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resend otp request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	err := h.authServ.ResendOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPending):
			// Distinto de "codigo incorrecto": el cliente debe reiniciar el signup.
			c.JSON(http.StatusBadRequest, gin.H{"msg": "User data not found"})
		case errors.Is(err, service.ErrOTPRequired):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "OTP is required"})
		case errors.Is(err, service.ErrOTPInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "OTP must be 6 digits"})
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Failed to resend OTP email", "emailSent": false})
		default:
			h.logger.Error("resend otp failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":       "OTP resent successfully! Please check your email inbox.",
		"emailSent": true,
	})
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	user, err := h.authServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid credentials"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	token, err := h.jwtServ.Generate(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// ForgotPassword maneja POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	err := h.authServ.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrEmailSendFailure) {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Failed to send reset email"})
			return
		}
		h.logger.Error("forgot password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}

	// Misma respuesta exista o no la cuenta.
	c.JSON(http.StatusOK, gin.H{"msg": "If that email exists, a reset link has been sent."})
}

// ResetPassword maneja PUT /api/auth/reset-password/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "Password too short"})
		return
	}

	err := h.authServ.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Password too short"})
		case errors.Is(err, service.ErrResetInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Invalid or expired token"})
		default:
			h.logger.Error("reset password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"msg": "Password reset successful"})
}

// Me maneja GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Unauthorized"})
		return
	}

	user, err := h.authServ.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"msg": "User not found"})
			return
		}
		h.logger.Error("get profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile maneja PUT /api/auth/update-profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Unauthorized"})
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email" binding:"omitempty,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
		return
	}

	user, err := h.authServ.UpdateProfile(c.Request.Context(), claims.UserID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailInUse):
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Email already in use"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"msg": "User not found"})
		default:
			h.logger.Error("update profile failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "Server error"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}
