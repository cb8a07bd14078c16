package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/openai"
	"github.com/greg-maceachern12/binder-sub000/internal/clients/pexels"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/repos"
	"github.com/greg-maceachern12/binder-sub000/internal/sse"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

type SyllabusService interface {
	// Generate turns a topic into a persisted course outline: one syllabus
	// row, its chapters, and their lessons (content null).
	Generate(ctx context.Context, topic string, courseType CourseType) (*types.Syllabus, error)
	GetByID(ctx context.Context, syllabusID uuid.UUID) (*types.Syllabus, error)
	ListRecent(ctx context.Context, limit int) ([]*types.Syllabus, error)
}

type syllabusService struct {
	db           *gorm.DB
	log          *logger.Logger
	sseHub       *sse.SSEHub
	syllabusRepo repos.SyllabusRepo
	chapterRepo  repos.ChapterRepo
	lessonRepo   repos.LessonRepo
	callLogRepo  repos.AICallLogRepo
	ai           openai.Client
	images       pexels.Client
}

func NewSyllabusService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub *sse.SSEHub,
	syllabusRepo repos.SyllabusRepo,
	chapterRepo repos.ChapterRepo,
	lessonRepo repos.LessonRepo,
	callLogRepo repos.AICallLogRepo,
	ai openai.Client,
	images pexels.Client,
) SyllabusService {
	return &syllabusService{
		db:           db,
		log:          baseLog.With("service", "SyllabusService"),
		sseHub:       sseHub,
		syllabusRepo: syllabusRepo,
		chapterRepo:  chapterRepo,
		lessonRepo:   lessonRepo,
		callLogRepo:  callLogRepo,
		ai:           ai,
		images:       images,
	}
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte(`null`))
	}
	return datatypes.JSON(raw)
}

func (ss *syllabusService) Generate(ctx context.Context, topic string, courseType CourseType) (*types.Syllabus, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic required: %w", apperr.ErrInvalidArgument)
	}

	profile := ProfileFor(courseType)
	if profile.System == "" {
		return nil, fmt.Errorf("unknown course type %q: %w", courseType, apperr.ErrInvalidArgument)
	}

	outline, err := ss.generateOutline(ctx, topic, profile)
	if err != nil {
		return nil, err
	}
	if len(outline.Chapters) > profile.MaxChapters {
		outline.Chapters = outline.Chapters[:profile.MaxChapters]
	}

	// Cover image is best effort. A lookup failure never fails the call.
	imageURL := ss.lookupCoverImage(ctx, outline.Title)

	now := time.Now()
	syllabus := &types.Syllabus{
		ID:                uuid.New(),
		Title:             outline.Title,
		Description:       outline.Description,
		Level:             outline.Level,
		EstimatedDuration: outline.EstimatedDuration,
		Prerequisites:     mustJSON(outline.Prerequisites),
		ImageURL:          imageURL,
		CourseType:        string(courseType),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ss.syllabusRepo.Create(ctx, tx, []*types.Syllabus{syllabus}); err != nil {
			return fmt.Errorf("create syllabus: %w", err)
		}

		chapters := make([]*types.Chapter, 0, len(outline.Chapters))
		for i, oc := range outline.Chapters {
			chapters = append(chapters, &types.Chapter{
				ID:                uuid.New(),
				SyllabusID:        syllabus.ID,
				OrderIndex:        i,
				Title:             oc.Title,
				Description:       oc.Description,
				EstimatedDuration: oc.EstimatedDuration,
				Emoji:             oc.Emoji,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
		if _, err := ss.chapterRepo.Create(ctx, tx, chapters); err != nil {
			return fmt.Errorf("create chapters: %w", err)
		}

		var lessons []*types.Lesson
		for i, oc := range outline.Chapters {
			for j, ol := range oc.Lessons {
				lessons = append(lessons, &types.Lesson{
					ID:          uuid.New(),
					ChapterID:   chapters[i].ID,
					OrderIndex:  j,
					Title:       ol.Title,
					Description: ol.Description,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
			}
		}
		if _, err := ss.lessonRepo.Create(ctx, tx, lessons); err != nil {
			return fmt.Errorf("create lessons: %w", err)
		}
		return nil
	})
	if err != nil {
		ss.log.Error("Syllabus persistence failed", "topic", topic, "error", err)
		return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}

	if ss.sseHub != nil {
		ss.sseHub.Broadcast(sse.SSEMessage{
			Channel: syllabus.ID.String(),
			Event:   sse.SSEEventSyllabusCreated,
			Data:    map[string]any{"syllabus": syllabus},
		})
	}

	return ss.GetByID(ctx, syllabus.ID)
}

func (ss *syllabusService) generateOutline(ctx context.Context, topic string, profile PromptProfile) (*types.SyllabusOutline, error) {
	start := time.Now()
	obj, err := ss.ai.GenerateJSON(ctx, profile.System, syllabusUserPrompt(topic), SyllabusSchema.Name, SyllabusSchema.Definition, profile.MaxOutputTokens)
	ss.logCall(ctx, "syllabus", uuid.Nil, len(profile.System)+len(topic), start, err)
	if err != nil {
		ss.log.Error("Outline generation failed", "topic", topic, "error", err)
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}

	if err := validateDocument(SyllabusSchema, map[string]any(obj)); err != nil {
		ss.log.Error("Outline failed schema validation", "topic", topic, "error", err)
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}
	var outline types.SyllabusOutline
	if err := json.Unmarshal(raw, &outline); err != nil {
		return nil, fmt.Errorf("%w: decode outline: %w", apperr.ErrUpstream, err)
	}
	if len(outline.Chapters) == 0 {
		return nil, fmt.Errorf("%w: empty outline", apperr.ErrUpstream)
	}
	return &outline, nil
}

func (ss *syllabusService) lookupCoverImage(ctx context.Context, title string) string {
	if ss.images == nil {
		return ""
	}
	imgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	url, err := ss.images.SearchImage(imgCtx, title)
	if err != nil {
		ss.log.Warn("Cover image lookup failed, continuing without image", "title", title, "error", err)
		return ""
	}
	return url
}

func (ss *syllabusService) logCall(ctx context.Context, kind string, targetID uuid.UUID, promptLen int, start time.Time, callErr error) {
	if ss.callLogRepo == nil {
		return
	}
	entry := &types.AICallLog{
		ID:         uuid.New(),
		Kind:       kind,
		Model:      ss.ai.Model(),
		TargetID:   targetID,
		DurationMS: time.Since(start).Milliseconds(),
		PromptLen:  promptLen,
		OK:         callErr == nil,
		CreatedAt:  time.Now(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if _, err := ss.callLogRepo.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
		ss.log.Warn("AI call log write failed", "error", err)
	}
}

func (ss *syllabusService) GetByID(ctx context.Context, syllabusID uuid.UUID) (*types.Syllabus, error) {
	syllabus, err := ss.syllabusRepo.GetWithOutline(ctx, nil, syllabusID)
	if err != nil {
		return nil, fmt.Errorf("load syllabus: %w (%w)", err, apperr.ErrPersistence)
	}
	if syllabus == nil {
		return nil, fmt.Errorf("syllabus %s: %w", syllabusID, apperr.ErrNotFound)
	}
	return syllabus, nil
}

func (ss *syllabusService) ListRecent(ctx context.Context, limit int) ([]*types.Syllabus, error) {
	syllabi, err := ss.syllabusRepo.ListRecent(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list syllabi: %w (%w)", err, apperr.ErrPersistence)
	}
	return syllabi, nil
}
