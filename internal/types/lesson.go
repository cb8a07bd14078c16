package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Lesson struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChapterID   uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_lesson_chapter_order,priority:1" json:"chapter_id"`
	Chapter     *Chapter       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID;references:ID" json:"chapter,omitempty"`
	OrderIndex  int            `gorm:"column:order_index;not null;uniqueIndex:idx_lesson_chapter_order,priority:2" json:"order_index"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	// Content is null until a generation succeeds, then holds a complete
	// LessonContent document. Never partially written.
	Content   datatypes.JSON `gorm:"column:content;type:jsonb" json:"content,omitempty"`
	AIModel   string         `gorm:"column:ai_model" json:"ai_model,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
