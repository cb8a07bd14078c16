package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chapter struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SyllabusID        uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_chapter_syllabus_order,priority:1" json:"syllabus_id"`
	Syllabus          *Syllabus      `gorm:"constraint:OnDelete:CASCADE;foreignKey:SyllabusID;references:ID" json:"syllabus,omitempty"`
	OrderIndex        int            `gorm:"column:order_index;not null;uniqueIndex:idx_chapter_syllabus_order,priority:2" json:"order_index"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	Description       string         `gorm:"column:description" json:"description"`
	EstimatedDuration string         `gorm:"column:estimated_duration" json:"estimated_duration"`
	Emoji             string         `gorm:"column:emoji" json:"emoji"`
	Lessons           []*Lesson      `gorm:"foreignKey:ChapterID;references:ID" json:"lessons,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Chapter) TableName() string { return "chapter" }
