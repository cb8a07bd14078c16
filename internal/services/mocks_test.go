package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/greg-maceachern12/binder-sub000/internal/clients/polar"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

// testDB opens an in-memory database so transaction wrappers have something
// real to run against. Table access goes through the fakes, not this handle.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db
}

// Programmable fakes for the repo and client interfaces. Zero values behave
// like empty stores.

type fakeUserRepo struct {
	users   map[uuid.UUID]*types.User
	updates []map[string]any
	err     error
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
	m := make(map[uuid.UUID]*types.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.User
	for _, email := range emails {
		for _, u := range f.users {
			if u.Email == email {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, fields)
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	if v, ok := fields["subscription_id"]; ok {
		if v == nil {
			u.SubscriptionID = nil
		} else if s, ok := v.(string); ok {
			u.SubscriptionID = &s
		}
	}
	if v, ok := fields["trial_active"].(bool); ok {
		u.TrialActive = v
	}
	if v, ok := fields["polar_id"].(string); ok {
		u.PolarID = &v
	}
	return nil
}

type fakeSyllabusRepo struct {
	syllabi map[uuid.UUID]*types.Syllabus
	updates map[uuid.UUID][]map[string]any
	created []*types.Syllabus
	err     error
}

func newFakeSyllabusRepo(syllabi ...*types.Syllabus) *fakeSyllabusRepo {
	m := make(map[uuid.UUID]*types.Syllabus)
	for _, s := range syllabi {
		m[s.ID] = s
	}
	return &fakeSyllabusRepo{syllabi: m, updates: make(map[uuid.UUID][]map[string]any)}
}

func (f *fakeSyllabusRepo) Create(ctx context.Context, tx *gorm.DB, syllabi []*types.Syllabus) ([]*types.Syllabus, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range syllabi {
		f.syllabi[s.ID] = s
		f.created = append(f.created, s)
	}
	return syllabi, nil
}

func (f *fakeSyllabusRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Syllabus, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.Syllabus
	for _, id := range ids {
		if s, ok := f.syllabi[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSyllabusRepo) GetWithOutline(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Syllabus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.syllabi[id], nil
}

func (f *fakeSyllabusRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Syllabus, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.Syllabus
	for _, s := range f.syllabi {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSyllabusRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.updates[id] = append(f.updates[id], fields)
	if s, ok := f.syllabi[id]; ok {
		if v, ok := fields["purchased"].(bool); ok {
			s.Purchased = v
		}
	}
	return nil
}

type fakeChapterRepo struct {
	created []*types.Chapter
	err     error
}

func (f *fakeChapterRepo) Create(ctx context.Context, tx *gorm.DB, chapters []*types.Chapter) ([]*types.Chapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, chapters...)
	return chapters, nil
}

func (f *fakeChapterRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Chapter, error) {
	return nil, nil
}

func (f *fakeChapterRepo) GetBySyllabusIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Chapter, error) {
	return f.created, nil
}

type fakeLessonRepo struct {
	lessons  map[uuid.UUID]*types.Lesson
	created  []*types.Lesson
	contents map[uuid.UUID][]datatypes.JSON
	err      error
	setErr   error
}

func newFakeLessonRepo(lessons ...*types.Lesson) *fakeLessonRepo {
	m := make(map[uuid.UUID]*types.Lesson)
	for _, l := range lessons {
		m[l.ID] = l
	}
	return &fakeLessonRepo{lessons: m, contents: make(map[uuid.UUID][]datatypes.JSON)}
}

func (f *fakeLessonRepo) Create(ctx context.Context, tx *gorm.DB, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range lessons {
		f.lessons[l.ID] = l
		f.created = append(f.created, l)
	}
	return lessons, nil
}

func (f *fakeLessonRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Lesson, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.Lesson
	for _, id := range ids {
		if l, ok := f.lessons[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLessonRepo) GetByChapterIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Lesson, error) {
	return f.created, nil
}

func (f *fakeLessonRepo) SetContent(ctx context.Context, tx *gorm.DB, id uuid.UUID, content datatypes.JSON, aiModel string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.contents[id] = append(f.contents[id], content)
	if l, ok := f.lessons[id]; ok {
		l.Content = content
		l.AIModel = aiModel
	}
	return nil
}

type fakeRunRepo struct {
	runs    map[uuid.UUID]*types.GenerationRun
	updates map[uuid.UUID][]map[string]any
	err     error
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		runs:    make(map[uuid.UUID]*types.GenerationRun),
		updates: make(map[uuid.UUID][]map[string]any),
	}
}

func (f *fakeRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range runs {
		f.runs[r.ID] = r
	}
	return runs, nil
}

func (f *fakeRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.GenerationRun, error) {
	var out []*types.GenerationRun
	for _, id := range ids {
		if r, ok := f.runs[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRunRepo) GetLatestForSyllabus(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID) (*types.GenerationRun, error) {
	for _, r := range f.runs {
		if r.SyllabusID == syllabusID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	// Mirror gorm: a dead context aborts the statement.
	if err := ctx.Err(); err != nil {
		return err
	}
	f.updates[id] = append(f.updates[id], fields)
	if r, ok := f.runs[id]; ok {
		if v, ok := fields["status"].(string); ok {
			r.Status = v
		}
		if v, ok := fields["progress"].(int); ok {
			r.Progress = v
		}
		if v, ok := fields["completed_lessons"].(int); ok {
			r.CompletedLessons = v
		}
		if v, ok := fields["error"].(string); ok {
			r.Error = v
		}
	}
	return nil
}

type fakeCallLogRepo struct {
	entries []*types.AICallLog
}

func (f *fakeCallLogRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
	f.entries = append(f.entries, logs...)
	return logs, nil
}

// fakeAI satisfies openai.Client with a scripted response per call.
type fakeAI struct {
	responses []map[string]any
	err       error
	calls     int
	model     string
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, maxOutputTokens int) (map[string]any, error) {
	idx := f.calls
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if idx >= len(f.responses) {
		return nil, fmt.Errorf("no scripted response for call %d", idx)
	}
	return f.responses[idx], nil
}

func (f *fakeAI) Model() string {
	if f.model == "" {
		return "test-model"
	}
	return f.model
}

type fakePolar struct {
	sub   *polar.Subscription
	err   error
	calls int
}

func (f *fakePolar) GetSubscription(ctx context.Context, id string) (*polar.Subscription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakePexels struct {
	url string
	err error
}

func (f *fakePexels) SearchImage(ctx context.Context, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// validLessonDoc returns a model response that passes LessonSchema.
func validLessonDoc(summary string) map[string]any {
	return map[string]any{
		"summary": summary,
		"sections": []any{
			map[string]any{
				"title":      "Getting oriented",
				"content":    "A full walkthrough of the core idea.",
				"key_points": []any{"the one thing to remember"},
				"examples":   []any{"a worked example"},
			},
		},
		"exercises": []any{
			map[string]any{"prompt": "try it", "solution": "like this"},
		},
		"assessment": map[string]any{
			"review_questions":  []any{"why?"},
			"practice_problems": []any{"do it again"},
		},
		"resources": map[string]any{
			"required":      []any{"the manual"},
			"supplementary": []any{},
		},
		"next_steps": []any{"keep going"},
	}
}

// validOutlineDoc returns a model response that passes SyllabusSchema.
func validOutlineDoc(title string, chapterCount, lessonsPerChapter int) map[string]any {
	chapters := make([]any, 0, chapterCount)
	for i := 0; i < chapterCount; i++ {
		lessons := make([]any, 0, lessonsPerChapter)
		for j := 0; j < lessonsPerChapter; j++ {
			lessons = append(lessons, map[string]any{
				"title":       fmt.Sprintf("Lesson %d.%d", i+1, j+1),
				"description": "what this lesson covers",
			})
		}
		chapters = append(chapters, map[string]any{
			"title":              fmt.Sprintf("Chapter %d", i+1),
			"description":        "what this chapter covers",
			"estimated_duration": "1 hour",
			"emoji":              "📘",
			"lessons":            lessons,
		})
	}
	return map[string]any{
		"title":              title,
		"description":        "a generated course",
		"level":              "beginner",
		"estimated_duration": "6 hours",
		"prerequisites":      []any{"curiosity"},
		"chapters":           chapters,
	}
}
