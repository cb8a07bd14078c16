package app

import (
	"github.com/greg-maceachern12/binder-sub000/internal/handlers"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/sse"
)

type Handlers struct {
	Syllabus     *handlers.SyllabusHandler
	Lesson       *handlers.LessonHandler
	Subscription *handlers.SubscriptionHandler
	Webhook      *handlers.WebhookHandler
	SSE          *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, sseHub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Syllabus:     handlers.NewSyllabusHandler(log, serviceset.Syllabus, serviceset.Run),
		Lesson:       handlers.NewLessonHandler(log, serviceset.LessonGen),
		Subscription: handlers.NewSubscriptionHandler(log, serviceset.Entitlement),
		Webhook:      handlers.NewWebhookHandler(log, serviceset.Webhook),
		SSE:          handlers.NewSSEHandler(log, sseHub),
	}
}
