package app

import (
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/services"
	"github.com/greg-maceachern12/binder-sub000/internal/sse"
)

type Services struct {
	Entitlement services.EntitlementService
	Webhook     services.WebhookService
	Syllabus    services.SyllabusService
	LessonGen   services.LessonGenService
	Run         services.RunService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos, sseHub *sse.SSEHub) Services {
	log.Info("Wiring services...")

	entitlementService := services.NewEntitlementService(db, log, reposet.User, clients.Polar)
	webhookService := services.NewWebhookService(db, log, reposet.User, reposet.Syllabus, clients.Polar, cfg.WebhookSecrets)
	syllabusService := services.NewSyllabusService(db, log, sseHub, reposet.Syllabus, reposet.Chapter, reposet.Lesson, reposet.AICallLog, clients.OpenAI, clients.Pexels)
	lessonGenService := services.NewLessonGenService(db, log, reposet.Lesson, reposet.AICallLog, entitlementService, clients.OpenAI)
	runService := services.NewRunService(db, log, sseHub, reposet.Syllabus, reposet.GenerationRun, lessonGenService, entitlementService)

	return Services{
		Entitlement: entitlementService,
		Webhook:     webhookService,
		Syllabus:    syllabusService,
		LessonGen:   lessonGenService,
		Run:         runService,
	}
}
