package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/types"
)

type SyllabusRepo interface {
	Create(ctx context.Context, tx *gorm.DB, syllabi []*types.Syllabus) ([]*types.Syllabus, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) ([]*types.Syllabus, error)
	// GetWithOutline loads a syllabus with its chapters and lessons, both
	// ordered by order_index.
	GetWithOutline(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID) (*types.Syllabus, error)
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Syllabus, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID, fields map[string]any) error
}

type syllabusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyllabusRepo(db *gorm.DB, baseLog *logger.Logger) SyllabusRepo {
	return &syllabusRepo{db: db, log: baseLog.With("repo", "SyllabusRepo")}
}

func (r *syllabusRepo) Create(ctx context.Context, tx *gorm.DB, syllabi []*types.Syllabus) ([]*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(syllabi) == 0 {
		return []*types.Syllabus{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&syllabi).Error; err != nil {
		return nil, err
	}
	return syllabi, nil
}

func (r *syllabusRepo) GetByIDs(ctx context.Context, tx *gorm.DB, syllabusIDs []uuid.UUID) ([]*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Syllabus
	if len(syllabusIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", syllabusIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syllabusRepo) GetWithOutline(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID) (*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Syllabus
	err := transaction.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("id = ?", syllabusID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *syllabusRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Syllabus, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if limit <= 0 {
		limit = 20
	}

	var results []*types.Syllabus
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syllabusRepo) UpdateFields(ctx context.Context, tx *gorm.DB, syllabusID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Syllabus{}).
		Where("id = ?", syllabusID).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}
