package routes

import (
	"github.com/gin-gonic/gin"

	"internboard/internal/handlers"
)

func SetupRoutes(
	r *gin.Engine,
	requireSession gin.HandlerFunc,
	authHandler *handlers.AuthHandler,
	resetHandler *handlers.PasswordResetHandler,
	internshipHandler *handlers.InternshipHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {

	// ---- public
	r.GET("/", authHandler.Root)
	r.GET("/healthz", healthHandler.Healthz)

	r.GET("/signup", authHandler.SignupPage)
	r.POST("/signup", authHandler.Signup)
	r.GET("/login", authHandler.LoginPage)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)

	r.GET("/forgot", resetHandler.ForgotPage)
	r.POST("/forgot", resetHandler.Forgot)
	r.POST("/verify", resetHandler.Verify)
	r.POST("/reset", resetHandler.Reset)

	// ---- protected
	protected := r.Group("/", requireSession)
	{
		protected.GET("/dashboard", internshipHandler.Dashboard)
		protected.GET("/dashboard/export.pdf", internshipHandler.ExportPDF)

		protected.GET("/post-internship", internshipHandler.NewPage)
		protected.POST("/post-internship", internshipHandler.Create)

		protected.GET("/internship/:id", internshipHandler.Show)
		protected.DELETE("/internship/:id", internshipHandler.Delete)
		protected.POST("/internship/:id/delete", internshipHandler.Delete)
	}

	return r
}
