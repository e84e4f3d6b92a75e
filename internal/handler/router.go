package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/accountd/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Profile       *ProfileHandler
	OTP           *OTPHandler
	Files         *FileHandler
	Authenticator middleware.Authenticator
	RateLimit     time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	registerValidators()
	limit := middleware.RateLimit(deps.RateLimit)

	api.POST("/register", limit, deps.Auth.Register)
	api.POST("/login", limit, deps.Auth.Login)
	api.POST("/check-email", deps.Auth.CheckEmail)
	api.POST("/send-otp", limit, deps.OTP.Send)
	api.POST("/verify-otp", limit, deps.OTP.Verify)
	api.GET("/files/:key", deps.Files.Get)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.Authenticator))
	authGroup.GET("/profile", deps.Profile.Get)
	authGroup.PUT("/update-profile", deps.Profile.Update)
	authGroup.POST("/update-profile", deps.Profile.Update)
	authGroup.POST("/change-password", limit, deps.Auth.ChangePassword)
	authGroup.POST("/upload-profile-picture", deps.Files.UploadProfilePicture)
	authGroup.POST("/logout", deps.Auth.Logout)
}
