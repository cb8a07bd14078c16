package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Syllabus struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	Description       string         `gorm:"column:description" json:"description"`
	Level             string         `gorm:"column:level" json:"level"`
	EstimatedDuration string         `gorm:"column:estimated_duration" json:"estimated_duration"`
	Prerequisites     datatypes.JSON `gorm:"column:prerequisites;type:jsonb" json:"prerequisites"`
	ImageURL          string         `gorm:"column:image_url" json:"image_url,omitempty"`
	CourseType        string         `gorm:"column:course_type;not null" json:"course_type"`
	Purchased         bool           `gorm:"column:purchased;not null;default:false" json:"purchased"`
	Chapters          []*Chapter     `gorm:"foreignKey:SyllabusID;references:ID" json:"chapters,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Syllabus) TableName() string { return "syllabus" }
