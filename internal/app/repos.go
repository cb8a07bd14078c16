package app

import (
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/repos"
)

type Repos struct {
	User          repos.UserRepo
	Syllabus      repos.SyllabusRepo
	Chapter       repos.ChapterRepo
	Lesson        repos.LessonRepo
	GenerationRun repos.GenerationRunRepo
	AICallLog     repos.AICallLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:          repos.NewUserRepo(db, log),
		Syllabus:      repos.NewSyllabusRepo(db, log),
		Chapter:       repos.NewChapterRepo(db, log),
		Lesson:        repos.NewLessonRepo(db, log),
		GenerationRun: repos.NewGenerationRunRepo(db, log),
		AICallLog:     repos.NewAICallLogRepo(db, log),
	}
}
