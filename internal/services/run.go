package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/apperr"
	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/repos"
	"github.com/greg-maceachern12/binder-sub000/internal/sse"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

type LessonState string

const (
	LessonPending    LessonState = "pending"
	LessonGenerating LessonState = "generating"
	LessonDone       LessonState = "done"
	LessonFailed     LessonState = "failed"
)

type RunOptions struct {
	// ChapterLimit and LessonLimit bound how much of the syllabus one run
	// processes. Zero means no limit.
	ChapterLimit int
	LessonLimit  int
	// UserID gates the run; uuid.Nil skips the entitlement check.
	UserID uuid.UUID
}

type RunResult struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	// Lessons accumulates successfully generated lessons, keyed by lesson
	// id; lessons after a failure are never present.
	Lessons map[uuid.UUID]*types.Lesson `json:"lessons"`
	States  map[uuid.UUID]LessonState   `json:"states"`
}

type RunService interface {
	// RunAll generates content for every lesson of a syllabus, one lesson at
	// a time in chapter order then lesson order. The first failure stops the
	// run; completed lessons stay. Per-lesson failures are reported inside
	// the result, not as a top-level error.
	RunAll(ctx context.Context, syllabusID uuid.UUID, opts RunOptions) (*RunResult, error)
	GetLatestRun(ctx context.Context, syllabusID uuid.UUID) (*types.GenerationRun, error)
}

type runService struct {
	db           *gorm.DB
	log          *logger.Logger
	sseHub       *sse.SSEHub
	syllabusRepo repos.SyllabusRepo
	runRepo      repos.GenerationRunRepo
	lessonGen    LessonGenService
	entitlement  EntitlementService
}

func NewRunService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub *sse.SSEHub,
	syllabusRepo repos.SyllabusRepo,
	runRepo repos.GenerationRunRepo,
	lessonGen LessonGenService,
	entitlement EntitlementService,
) RunService {
	return &runService{
		db:           db,
		log:          baseLog.With("service", "RunService"),
		sseHub:       sseHub,
		syllabusRepo: syllabusRepo,
		runRepo:      runRepo,
		lessonGen:    lessonGen,
		entitlement:  entitlement,
	}
}

func (rs *runService) RunAll(ctx context.Context, syllabusID uuid.UUID, opts RunOptions) (*RunResult, error) {
	syllabus, err := rs.syllabusRepo.GetWithOutline(ctx, nil, syllabusID)
	if err != nil {
		return nil, fmt.Errorf("load syllabus: %w (%w)", err, apperr.ErrPersistence)
	}
	if syllabus == nil {
		return nil, fmt.Errorf("syllabus %s: %w", syllabusID, apperr.ErrNotFound)
	}

	// One gate for the whole run; individual lesson calls run ungated so a
	// single live provider check covers all of them.
	if opts.UserID != uuid.Nil {
		ent, _, err := rs.entitlement.Resolve(ctx, opts.UserID)
		if err != nil {
			return nil, err
		}
		if !ent.CanGenerate {
			return nil, fmt.Errorf("user %s has no active subscription or trial: %w", opts.UserID, apperr.ErrForbidden)
		}
	}

	chapters := syllabus.Chapters
	if opts.ChapterLimit > 0 && len(chapters) > opts.ChapterLimit {
		chapters = chapters[:opts.ChapterLimit]
	}

	type unit struct {
		chapter *types.Chapter
		lesson  *types.Lesson
	}
	var plan []unit
	for _, ch := range chapters {
		lessons := ch.Lessons
		if opts.LessonLimit > 0 && len(lessons) > opts.LessonLimit {
			lessons = lessons[:opts.LessonLimit]
		}
		for _, l := range lessons {
			plan = append(plan, unit{chapter: ch, lesson: l})
		}
	}

	now := time.Now()
	run := &types.GenerationRun{
		ID:           uuid.New(),
		SyllabusID:   syllabusID,
		Status:       "running",
		TotalLessons: len(plan),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := rs.runRepo.Create(ctx, nil, []*types.GenerationRun{run}); err != nil {
		return nil, fmt.Errorf("create generation run: %w (%w)", err, apperr.ErrPersistence)
	}

	result := &RunResult{
		RunID:   run.ID,
		Status:  "running",
		Lessons: make(map[uuid.UUID]*types.Lesson, len(plan)),
		States:  make(map[uuid.UUID]LessonState, len(plan)),
	}
	for _, u := range plan {
		result.States[u.lesson.ID] = LessonPending
	}

	completed := 0
	for _, u := range plan {
		if err := ctx.Err(); err != nil {
			rs.failRun(ctx, run.ID, syllabusID, u.lesson.ID, result, completed, err)
			return result, nil
		}

		result.States[u.lesson.ID] = LessonGenerating

		lesson, err := rs.lessonGen.Generate(ctx, GenerateLessonInput{
			LessonID:     u.lesson.ID,
			LessonTitle:  u.lesson.Title,
			ChapterTitle: u.chapter.Title,
			CourseTitle:  syllabus.Title,
		})
		if err != nil {
			// Fail fast: record, stop, keep what finished.
			rs.failRun(ctx, run.ID, syllabusID, u.lesson.ID, result, completed, err)
			return result, nil
		}

		result.States[u.lesson.ID] = LessonDone
		result.Lessons[u.lesson.ID] = lesson
		completed++

		progress := 0
		if len(plan) > 0 {
			progress = completed * 100 / len(plan)
		}
		if err := rs.runRepo.UpdateFields(ctx, nil, run.ID, map[string]any{
			"completed_lessons": completed,
			"progress":          progress,
			"updated_at":        time.Now(),
		}); err != nil {
			rs.log.Warn("Run progress update failed", "run_id", run.ID, "error", err)
		}
		rs.broadcast(syllabusID, sse.SSEEventLessonGenerated, map[string]any{
			"run_id":    run.ID,
			"lesson_id": u.lesson.ID,
			"completed": completed,
			"total":     len(plan),
		})
	}

	// Terminal state must land even if the caller disconnected mid-run.
	if err := rs.runRepo.UpdateFields(context.WithoutCancel(ctx), nil, run.ID, map[string]any{
		"status":     "succeeded",
		"progress":   100,
		"updated_at": time.Now(),
	}); err != nil {
		rs.log.Warn("Run completion update failed", "run_id", run.ID, "error", err)
	}
	result.Status = "succeeded"
	rs.broadcast(syllabusID, sse.SSEEventRunCompleted, map[string]any{
		"run_id": run.ID,
		"total":  len(plan),
	})
	return result, nil
}

func (rs *runService) failRun(ctx context.Context, runID, syllabusID, lessonID uuid.UUID, result *RunResult, completed int, cause error) {
	rs.log.Error("Generation run failed", "run_id", runID, "lesson_id", lessonID, "error", cause)

	result.States[lessonID] = LessonFailed
	result.Status = "failed"
	result.Error = cause.Error()

	// The failure is often a canceled context; the terminal state still has
	// to reach the run row or GetLatestRun reports the run as in progress
	// forever.
	now := time.Now()
	if err := rs.runRepo.UpdateFields(context.WithoutCancel(ctx), nil, runID, map[string]any{
		"status":            "failed",
		"error":             cause.Error(),
		"completed_lessons": completed,
		"last_error_at":     now,
		"updated_at":        now,
	}); err != nil {
		rs.log.Warn("Run failure update failed", "run_id", runID, "error", err)
	}
	rs.broadcast(syllabusID, sse.SSEEventRunFailed, map[string]any{
		"run_id":    runID,
		"lesson_id": lessonID,
		"error":     cause.Error(),
	})
}

func (rs *runService) broadcast(syllabusID uuid.UUID, event sse.SSEEvent, data map[string]any) {
	if rs.sseHub == nil {
		return
	}
	rs.sseHub.Broadcast(sse.SSEMessage{
		Channel: syllabusID.String(),
		Event:   event,
		Data:    data,
	})
}

func (rs *runService) GetLatestRun(ctx context.Context, syllabusID uuid.UUID) (*types.GenerationRun, error) {
	run, err := rs.runRepo.GetLatestForSyllabus(ctx, nil, syllabusID)
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w (%w)", err, apperr.ErrPersistence)
	}
	return run, nil
}
