package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/openai"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/repos"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

type GenerateLessonInput struct {
	LessonID     uuid.UUID
	LessonTitle  string
	ChapterTitle string
	CourseTitle  string
	// UserID is uuid.Nil for anonymous requests, which skip the entitlement
	// gate. The caller owns that decision.
	UserID uuid.UUID
}

type LessonGenService interface {
	// Generate produces the detailed content document for one existing
	// lesson and overwrites the lesson's content field. It never creates
	// rows.
	Generate(ctx context.Context, input GenerateLessonInput) (*types.Lesson, error)
}

type lessonGenService struct {
	db          *gorm.DB
	log         *logger.Logger
	lessonRepo  repos.LessonRepo
	callLogRepo repos.AICallLogRepo
	entitlement EntitlementService
	ai          openai.Client

	maxOutputTokens int
}

func NewLessonGenService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	callLogRepo repos.AICallLogRepo,
	entitlement EntitlementService,
	ai openai.Client,
) LessonGenService {
	return &lessonGenService{
		db:              db,
		log:             baseLog.With("service", "LessonGenService"),
		lessonRepo:      lessonRepo,
		callLogRepo:     callLogRepo,
		entitlement:     entitlement,
		ai:              ai,
		maxOutputTokens: 8192,
	}
}

func (ls *lessonGenService) Generate(ctx context.Context, input GenerateLessonInput) (*types.Lesson, error) {
	if input.LessonID == uuid.Nil ||
		strings.TrimSpace(input.LessonTitle) == "" ||
		strings.TrimSpace(input.ChapterTitle) == "" ||
		strings.TrimSpace(input.CourseTitle) == "" {
		return nil, fmt.Errorf("lesson id, lesson title, chapter title and course title are all required: %w", apperr.ErrInvalidArgument)
	}

	// Gate before any model call so unauthorized requests never spend
	// generation cost.
	if input.UserID != uuid.Nil {
		ent, _, err := ls.entitlement.Resolve(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if !ent.CanGenerate {
			return nil, fmt.Errorf("user %s has no active subscription or trial: %w", input.UserID, apperr.ErrForbidden)
		}
	}

	lessons, err := ls.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{input.LessonID})
	if err != nil {
		return nil, fmt.Errorf("load lesson: %w (%w)", err, apperr.ErrPersistence)
	}
	if len(lessons) == 0 || lessons[0] == nil {
		return nil, fmt.Errorf("lesson %s: %w", input.LessonID, apperr.ErrNotFound)
	}
	lesson := lessons[0]

	content, err := ls.generateContent(ctx, input)
	if err != nil {
		return nil, err
	}

	// Single-column overwrite: the document is either fully replaced or the
	// prior value stays intact.
	if err := ls.lessonRepo.SetContent(ctx, nil, lesson.ID, mustJSON(content), ls.ai.Model()); err != nil {
		ls.log.Error("Lesson content write failed", "lesson_id", lesson.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}

	updated, err := ls.lessonRepo.GetByIDs(ctx, nil, []uuid.UUID{lesson.ID})
	if err != nil || len(updated) == 0 {
		return nil, fmt.Errorf("reload lesson: %w (%w)", err, apperr.ErrPersistence)
	}
	return updated[0], nil
}

func (ls *lessonGenService) generateContent(ctx context.Context, input GenerateLessonInput) (*types.LessonContent, error) {
	user := lessonUserPrompt(input.CourseTitle, input.ChapterTitle, input.LessonTitle)

	start := time.Now()
	obj, err := ls.ai.GenerateJSON(ctx, lessonSystemPrompt, user, LessonSchema.Name, LessonSchema.Definition, ls.maxOutputTokens)
	ls.logCall(ctx, input.LessonID, len(lessonSystemPrompt)+len(user), start, err)
	if err != nil {
		ls.log.Error("Lesson generation failed", "lesson_id", input.LessonID, "error", err)
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}

	if err := validateDocument(LessonSchema, map[string]any(obj)); err != nil {
		ls.log.Error("Lesson content failed schema validation", "lesson_id", input.LessonID, "error", err)
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}
	var content types.LessonContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("%w: decode lesson content: %w", apperr.ErrUpstream, err)
	}
	if content.Summary == "" || len(content.Sections) == 0 {
		return nil, fmt.Errorf("%w: empty lesson content", apperr.ErrUpstream)
	}
	return &content, nil
}

func (ls *lessonGenService) logCall(ctx context.Context, lessonID uuid.UUID, promptLen int, start time.Time, callErr error) {
	if ls.callLogRepo == nil {
		return
	}
	entry := &types.AICallLog{
		ID:         uuid.New(),
		Kind:       "lesson",
		Model:      ls.ai.Model(),
		TargetID:   lessonID,
		DurationMS: time.Since(start).Milliseconds(),
		PromptLen:  promptLen,
		OK:         callErr == nil,
		CreatedAt:  time.Now(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if _, err := ls.callLogRepo.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
		ls.log.Warn("AI call log write failed", "error", err)
	}
}
