package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/internal/handlers"
)

type authRouteDeps struct {
	AuthHandler     *handlers.AuthHandler
	ProviderHandler *handlers.AuthProviderHandler
	RequireAuth     gin.HandlerFunc
}

func registerAuthRoutes(v1 *gin.RouterGroup, deps authRouteDeps) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/google", deps.AuthHandler.Google)
		auth.POST("/facebook", deps.AuthHandler.Facebook)
		auth.POST("/oauth/:provider", deps.AuthHandler.OAuth)
		auth.POST("/refresh", deps.AuthHandler.Refresh)
		auth.POST("/forgot-password", deps.AuthHandler.ForgotPassword)
		auth.POST("/verify-otp", deps.AuthHandler.VerifyOTP)
		auth.POST("/reset-password", deps.AuthHandler.ResetPassword)
		auth.GET("/providers", deps.ProviderHandler.ListPublic)
	}

	protected := auth.Group("")
	protected.Use(deps.RequireAuth)
	{
		protected.POST("/change-password", deps.AuthHandler.ChangePassword)
		protected.POST("/logout", deps.AuthHandler.Logout)
		protected.GET("/me", deps.AuthHandler.Me)
	}
}
