package types

import (
	"time"

	"github.com/google/uuid"
)

// AICallLog is an audit row for every model completion issued by the
// generation services.
type AICallLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       string    `gorm:"column:kind;not null;index" json:"kind"` // syllabus|lesson
	Model      string    `gorm:"column:model;not null" json:"model"`
	TargetID   uuid.UUID `gorm:"type:uuid;column:target_id;index" json:"target_id"`
	DurationMS int64     `gorm:"column:duration_ms;not null" json:"duration_ms"`
	PromptLen  int       `gorm:"column:prompt_len;not null" json:"prompt_len"`
	OK         bool      `gorm:"column:ok;not null" json:"ok"`
	Error      string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (AICallLog) TableName() string { return "ai_call_log" }
