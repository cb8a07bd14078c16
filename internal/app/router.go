package app

import (
	"github.com/gin-gonic/gin"

	"github.com/greg-maceachern12/binder-sub000/internal/server"
)

func wireRouter(handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:      middlewareset.Auth,
		SyllabusHandler:     handlerset.Syllabus,
		LessonHandler:       handlerset.Lesson,
		SubscriptionHandler: handlerset.Subscription,
		WebhookHandler:      handlerset.Webhook,
		SSEHandler:          handlerset.SSE,
	})
}
