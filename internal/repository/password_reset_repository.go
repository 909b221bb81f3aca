package repository

import (
	"catalog-admin-service/internal/models"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const resetTokenBytes = 32

// PasswordResetRepository keeps one hashed reset token per email
type PasswordResetRepository struct {
	db       *gorm.DB
	ttl      time.Duration
	throttle time.Duration
}

func NewPasswordResetRepository(db *gorm.DB, ttl, throttle time.Duration) *PasswordResetRepository {
	return &PasswordResetRepository{db: db, ttl: ttl, throttle: throttle}
}

// GenerateSecureToken returns a URL-safe random token of n bytes of entropy
func GenerateSecureToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(bytes), "="), nil
}

// HashToken returns the stored form of a reset token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue replaces the email's reset token and returns the plaintext. A token
// issued less than the throttle window ago yields ErrResetThrottled.
func (r *PasswordResetRepository) Issue(ctx context.Context, email string, now time.Time) (string, error) {
	var existing models.PasswordResetToken
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		if r.throttle > 0 && now.Before(existing.CreatedAt.Add(r.throttle)) {
			return "", ErrResetThrottled
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}

	token, err := GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	row := models.PasswordResetToken{Email: email, Token: HashToken(token), CreatedAt: now}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", err
	}
	return token, nil
}

// Consume verifies token for email and deletes it. Unknown, mismatched and
// expired tokens all yield ErrInvalidResetToken.
func (r *PasswordResetRepository) Consume(ctx context.Context, email, token string, now time.Time) error {
	var row models.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		return notFound(err, ErrInvalidResetToken)
	}

	if subtle.ConstantTimeCompare([]byte(row.Token), []byte(HashToken(token))) != 1 {
		return ErrInvalidResetToken
	}
	if r.ttl > 0 && !now.Before(row.CreatedAt.Add(r.ttl)) {
		r.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, "email = ?", email)
		return ErrInvalidResetToken
	}

	return r.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, "email = ?", email).Error
}
