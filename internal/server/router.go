package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/greg-maceachern12/binder-sub000/internal/handlers"
	"github.com/greg-maceachern12/binder-sub000/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	SyllabusHandler     *handlers.SyllabusHandler
	LessonHandler       *handlers.LessonHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	WebhookHandler      *handlers.WebhookHandler
	SSEHandler          *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	// Webhooks authenticate via provider signature, never via bearer token.
	router.POST("/webhooks/lemonsqueezy", cfg.WebhookHandler.LemonSqueezy)
	router.POST("/webhooks/polar", cfg.WebhookHandler.Polar)

	// ===============
	// || API       ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.OptionalAuth())
	{
		api.POST("/syllabus", cfg.SyllabusHandler.Create)
		api.GET("/syllabus/:id", cfg.SyllabusHandler.Get)
		api.GET("/syllabi", cfg.SyllabusHandler.List)
		api.POST("/syllabus/:id/generate", cfg.SyllabusHandler.GenerateAll)
		api.GET("/syllabus/:id/run", cfg.SyllabusHandler.GetLatestRun)
		api.POST("/lesson", cfg.LessonHandler.Create)
		api.GET("/subscription/verify", cfg.SubscriptionHandler.Verify)
	}

	// SSE
	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}
