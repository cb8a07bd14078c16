package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GenerationRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SyllabusID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"syllabus_id"`
	Status           string         `gorm:"column:status;not null;index" json:"status"` // queued|running|succeeded|failed
	Progress         int            `gorm:"column:progress;not null;default:0" json:"progress"`
	CompletedLessons int            `gorm:"column:completed_lessons;not null;default:0" json:"completed_lessons"`
	TotalLessons     int            `gorm:"column:total_lessons;not null;default:0" json:"total_lessons"`
	Error            string         `gorm:"column:error" json:"error,omitempty"`
	LastErrorAt      *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationRun) TableName() string { return "generation_run" }
