package repository

import (
	"catalog-admin-service/internal/models"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// checkUnique rejects an email or cpf_cnpj already owned by another user.
// Trashed users keep their identifiers.
func (r *UserRepository) checkUnique(tx *gorm.DB, user *models.User) error {
	taken := func(column string, value interface{}) (bool, error) {
		var count int64
		query := tx.Unscoped().Model(&models.User{}).Where(column+" = ?", value)
		if user.ID != uuid.Nil {
			query = query.Where("id <> ?", user.ID)
		}
		err := query.Count(&count).Error
		return count > 0, err
	}

	if ok, err := taken("email", user.Email); err != nil {
		return err
	} else if ok {
		return ErrEmailTaken
	}
	if user.CPFCNPJ != nil && *user.CPFCNPJ != "" {
		if ok, err := taken("cpf_cnpj", *user.CPFCNPJ); err != nil {
			return err
		} else if ok {
			return ErrCPFCNPJTaken
		}
	}
	return nil
}

// Create hashes the plaintext password held in user.Password and inserts the user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	hash, err := HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = hash

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkUnique(tx, user); err != nil {
			return err
		}
		return tx.Create(user).Error
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &user, nil
}

// UpdateProfile applies req to the user, enforcing email and cpf_cnpj uniqueness
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return notFound(err, ErrUserNotFound)
		}
		req.Apply(&user)
		if err := r.checkUnique(tx, &user); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPassword stores a new bcrypt hash and rotates the remember token
func (r *UserRepository) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	remember := uuid.NewString()

	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"password":       hash,
			"remember_token": remember,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordLogin stores the time and client address of a successful login
func (r *UserRepository) RecordLogin(ctx context.Context, user *models.User, ip string, at time.Time) error {
	user.LastLoginAt = &at
	user.LastLoginIP = &ip
	return r.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"last_login_at": at,
		"last_login_ip": ip,
	}).Error
}

// SetAvatar stores the avatar file name, nil clears it
func (r *UserRepository) SetAvatar(ctx context.Context, user *models.User, avatar *string) error {
	user.Avatar = avatar
	return r.db.WithContext(ctx).Model(user).Update("avatar", avatar).Error
}

// List returns all live users ordered by creation
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, err
}
