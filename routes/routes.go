package routes

import (
	"time"

	"github.com/Krish-Depani/account-security/controllers"
	"github.com/Krish-Depani/account-security/middleware"
	"github.com/Krish-Depani/account-security/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limit is a per-IP request budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

type Deps struct {
	Auth          *controllers.AuthController
	User          *controllers.UserController
	Activity      *controllers.ActivityController
	Authenticator middleware.Authenticator
	Limiter       middleware.Limiter
	SigninLimit   Limit
	SignupLimit   Limit
	Logger        *zap.Logger
}

func SetupRoutes(router *gin.Engine, d Deps) {
	requireAuth := middleware.RequireAuth(d.Authenticator)
	csrf := middleware.CSRF()
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.GET("/health", d.Auth.Health)
		auth.GET("/csrf-token", d.Auth.CSRFToken)
		auth.POST("/signup", middleware.RateLimit(d.Limiter, "signup", d.SignupLimit.Requests, d.SignupLimit.Window, d.Logger), d.Auth.Signup)
		auth.POST("/signin", middleware.RateLimit(d.Limiter, "signin", d.SigninLimit.Requests, d.SigninLimit.Window, d.Logger), d.Auth.Signin)
		auth.POST("/change-expired-password", middleware.RateLimit(d.Limiter, "change-expired-password", d.SigninLimit.Requests, d.SigninLimit.Window, d.Logger), d.Auth.ChangeExpiredPassword)
		auth.POST("/verify-email/:token", d.Auth.VerifyEmail)
		auth.POST("/resend-verification", d.Auth.ResendVerification)
		auth.GET("/signout", d.Auth.Signout)

		mfa := auth.Group("/mfa", requireAuth, csrf)
		{
			mfa.POST("/setup", d.Auth.SetupMFA)
			mfa.POST("/enable", d.Auth.EnableMFA)
			mfa.POST("/disable", d.Auth.DisableMFA)
		}
	}

	user := api.Group("/user", requireAuth, csrf)
	{
		user.GET("/me", d.User.GetCurrentUser)
		user.POST("/password", d.User.UpdatePassword)
	}

	act := api.Group("/activity", requireAuth, csrf)
	{
		act.GET("/logs", d.Activity.Logs)
		act.GET("/security", d.Activity.Security)
		act.GET("/login-history", d.Activity.LoginHistory)
		act.GET("/export", d.Activity.Export)

		admin := act.Group("/admin", adminOnly)
		{
			admin.GET("/all-logs", d.Activity.AdminLogs)
			admin.GET("/dashboard", d.Activity.AdminDashboard)
			admin.GET("/users", d.Activity.AdminUsers)
			admin.GET("/user/:userId", d.Activity.AdminUserDetails)
			admin.PUT("/user/:userId/role", d.Activity.UpdateUserRole)
		}
	}
}
