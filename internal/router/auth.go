package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		credentials := auth.Group("")
		if r.authLimiter != nil {
			credentials.Use(r.authLimiter.Middleware())
		}
		{
			credentials.POST("/signup", r.authHandler.Signup)
			credentials.POST("/login", r.authHandler.Login)
			credentials.POST("/forgot-password", r.authHandler.ForgotPassword)
			credentials.POST("/reset-password", r.authHandler.ResetPassword)
			credentials.POST("/resend-verification", r.authHandler.ResendVerification)
		}

		auth.GET("/verify-email", r.authHandler.VerifyEmail)

		// Federated login: google, facebook
		auth.GET("/:provider", r.oauthHandler.Login)
		auth.GET("/:provider/callback", r.oauthHandler.Callback)

		protected := auth.Group("/user")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.GET("/profile", r.authHandler.Profile)
		}
	}
}
