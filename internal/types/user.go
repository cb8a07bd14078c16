package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email          string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	SubscriptionID *string        `gorm:"column:subscription_id" json:"subscription_id,omitempty"`
	TrialActive    bool           `gorm:"column:trial_active;not null;default:false" json:"trial_active"`
	PolarID        *string        `gorm:"column:polar_id" json:"polar_id,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
