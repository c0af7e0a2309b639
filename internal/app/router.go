package app

import (
	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/middleware"
	"mytestbuddies_backend/internal/model"
	"mytestbuddies_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	api := router.Group("/api")
	{
		api.GET("/health", c.health.Check)

		auth := api.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
			auth.POST("/send-otp", c.auth.SendOTP)
			auth.POST("/verify-otp", c.auth.VerifyOTP)
		}

		// Field catalog is browsable before login.
		api.GET("/fields", middleware.TryAuthMiddleware(a.Config), c.field.List)
		api.GET("/payment/status/:utr", middleware.TryAuthMiddleware(a.Config), c.payment.Status)
	}
}

func (a *App) registerStudentRoutes(authGroup *gin.RouterGroup, c *controllers) {
	authGroup.GET("/auth/me", c.auth.Me)

	authGroup.GET("/quizzes", c.dashboard.Overview)

	// Legacy client paths kept verbatim.
	questions := authGroup.Group("/admin/questions/fields")
	{
		questions.GET("/que/:fieldId", c.quiz.Questions)
		questions.POST("/submit-answer/:fieldId", c.quiz.Submit)
		questions.GET("/progress/:fieldId", c.quiz.Progress)
	}

	quiz := authGroup.Group("/quiz")
	{
		quiz.POST("/fields/:fieldId/start", c.quiz.Start)
		quiz.PUT("/attempts/:id/answers", c.quiz.SaveAnswer)
	}

	payments := authGroup.Group("/payments")
	{
		payments.POST("/order", c.payment.CreateOrder)
		payments.GET("/:id/qr", c.payment.QRCode)
		payments.POST("/:id/utr", c.payment.SubmitUTR)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user), middleware.RoleMiddleware(model.Admin))
	{
		fields := admin.Group("/admin/fields")
		{
			fields.GET("", c.field.List)
			fields.POST("", c.field.Create)
			fields.PUT("/:id", c.field.Update)
			fields.DELETE("/:id", c.field.Delete)
			fields.GET("/:id/questions", c.field.Review)
		}

		// Older admin screens fetch the review view from here.
		admin.GET("/fields/:id/questions", c.field.Review)

		questions := admin.Group("/admin/questions")
		{
			questions.POST("", c.question.Create)
			questions.PUT("/:id", c.question.Update)
			questions.DELETE("/:id", c.question.Delete)
			questions.POST("/fields/:fieldId/questions", c.quiz.CreateInField)
		}

		admin.GET("/payment/all-payments", c.payment.All)
		admin.PUT("/payment/status/:utr", c.payment.UpdateStatus)
		admin.GET("/admin/payments/pending", c.payment.Pending)
		admin.POST("/admin/payments/:id/verify", c.payment.Verify)
	}
}
