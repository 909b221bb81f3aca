package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersonalAccessToken backs a bearer token; the signed token carries its ID
// and is valid only while the row exists and has not expired.
type PersonalAccessToken struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID  `json:"-" gorm:"type:uuid;not null;index"`
	Name       string     `json:"name" gorm:"not null"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"-"`
}

func (t *PersonalAccessToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *PersonalAccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

func (PersonalAccessToken) TableName() string {
	return "personal_access_tokens"
}

// PasswordResetToken stores the hash of the latest reset token issued for an email.
type PasswordResetToken struct {
	Email     string    `gorm:"primaryKey"`
	Token     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
