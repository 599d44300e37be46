package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/internal/models"
	"github.com/tramdoc/tramdoc/internal/services"
	"github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/response"
)

// AuthHandler exposes registration, login, token refresh and password recovery.
type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,email_domain"`
	Password string `json:"password" validate:"required,strong_password"`
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,email_domain"`
	Password string `json:"password" validate:"required"`
}

type oauthLoginRequest struct {
	// AccessToken also accepts a Google ID token.
	AccessToken string `json:"access_token" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,email_domain"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,email_domain"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email,email_domain"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (r *registerRequest) normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *loginRequest) normalize() { r.Email = models.NormalizeEmail(r.Email) }
func (r *forgotPasswordRequest) normalize() { r.Email = models.NormalizeEmail(r.Email) }

func (r *verifyOTPRequest) normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

func (r *resetPasswordRequest) normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Register(requestContext(c), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(requestContext(c), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/v1/auth/google
func (h *AuthHandler) Google(c *gin.Context) {
	h.oauthLogin(c, models.AuthProviderGoogle)
}

// POST /api/v1/auth/facebook
func (h *AuthHandler) Facebook(c *gin.Context) {
	h.oauthLogin(c, models.AuthProviderFacebook)
}

// POST /api/v1/auth/oauth/:provider
func (h *AuthHandler) OAuth(c *gin.Context) {
	provider, err := models.ParseAuthProvider(c.Param("provider"))
	if err != nil || !provider.IsExternal() {
		response.Error(c, services.ErrOAuthProviderUnsupported)
		return
	}
	h.oauthLogin(c, provider)
}

func (h *AuthHandler) oauthLogin(c *gin.Context, provider models.AuthProvider) {
	var req oauthLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.OAuthLogin(requestContext(c), provider, strings.TrimSpace(req.AccessToken))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		response.Error(c, errors.NewBadRequest("refresh token is required"))
		return
	}

	result, err := h.accounts.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.accounts.ChangePassword(requestContext(c), identity, services.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password changed successfully")
}

// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ForgotPassword(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "If the email is registered, a reset code has been sent to it")
}

// POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.VerifyOTP(requestContext(c), req.Email, req.OTP); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"valid": true, "message": "Reset code is valid"})
}

// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.accounts.ResetPassword(requestContext(c), services.ResetPasswordInput{
		Email:           req.Email,
		Code:            req.OTP,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password reset successfully")
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	if err := h.accounts.Logout(requestContext(c), identity); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Logged out successfully")
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	summary, err := h.accounts.Me(requestContext(c), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}
