package app

import (
	"bilan_backend/internal/config"
	"bilan_backend/internal/middleware"
	"bilan_backend/internal/model"
	"bilan_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.Health)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)

		assessments := authGroup.Group("/assessments")
		{
			assessments.POST("", c.assessment.Create)
			assessments.GET("", c.assessment.List)
			assessments.GET("/:id", c.assessment.Get)
			assessments.PUT("/:id", c.assessment.Update)

			// Wizard endpoints: explicit saves and auto-saves share save-step.
			assessments.POST("/:id/wizard/save-step", c.assessment.SaveStep)
			assessments.GET("/:id/progress", c.assessment.Progress)
			assessments.POST("/:id/submit", c.assessment.Submit)
			assessments.GET("/:id/competencies", c.assessment.Competencies)

			assessments.POST("/:id/documents", c.document.Upload)
			assessments.GET("/:id/documents", c.document.List)
		}

		staff := authGroup.Group("/staff")
		staff.Use(middleware.RoleMiddleware(model.Consultant))
		{
			staff.GET("/assessments", c.assessment.List)
		}
	}
}
