package repository

import (
	"catalog-admin-service/internal/models"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenRepository persists personal access tokens. A bearer token stays valid
// only while its row exists.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create issues a token row for user named after the client device. A zero ttl never expires.
func (r *TokenRepository) Create(ctx context.Context, userID uuid.UUID, name string, ttl time.Duration) (*models.PersonalAccessToken, error) {
	token := &models.PersonalAccessToken{
		UserID: userID,
		Name:   name,
	}
	if ttl > 0 {
		expiresAt := time.Now().Add(ttl)
		token.ExpiresAt = &expiresAt
	}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// Authenticate resolves an unexpired token to its live user and records its
// use. Expired rows are removed.
func (r *TokenRepository) Authenticate(ctx context.Context, tokenID, userID uuid.UUID, now time.Time) (*models.User, error) {
	var token models.PersonalAccessToken
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", tokenID, userID).First(&token).Error
	if err != nil {
		return nil, notFound(err, ErrTokenNotFound)
	}
	if token.Expired(now) {
		r.db.WithContext(ctx).Delete(&models.PersonalAccessToken{}, "id = ?", token.ID)
		return nil, ErrTokenNotFound
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}

	if err := r.db.WithContext(ctx).Model(&token).UpdateColumn("last_used_at", now).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListForUser returns the user's tokens, newest first
func (r *TokenRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PersonalAccessToken, error) {
	var tokens []models.PersonalAccessToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// Revoke deletes one of the user's tokens. Tokens of other users are reported as not found.
func (r *TokenRepository) Revoke(ctx context.Context, userID, tokenID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", tokenID, userID).
		Delete(&models.PersonalAccessToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeAll deletes every token of the user
func (r *TokenRepository) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PersonalAccessToken{})
	return result.RowsAffected, result.Error
}
