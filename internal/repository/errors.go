package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrTokenNotFound    = errors.New("access token not found")

	// ErrSlugConflict means a unique slug could not be stored after retrying.
	ErrSlugConflict = errors.New("slug conflict persisted after retries")
	// ErrSlugTaken means an explicitly requested slug belongs to another live row.
	ErrSlugTaken = errors.New("slug has already been taken")

	ErrCategoryCycle  = errors.New("category cannot be moved under itself or its descendants")
	ErrParentNotFound = errors.New("parent category not found")

	ErrEmailTaken   = errors.New("email has already been taken")
	ErrCPFCNPJTaken = errors.New("cpf_cnpj has already been taken")
	ErrSKUTaken     = errors.New("sku has already been taken")
	ErrBarcodeTaken = errors.New("barcode has already been taken")

	ErrInvalidResetToken = errors.New("password reset token is invalid")
	ErrResetThrottled    = errors.New("password reset requested too recently")
)

// isUniqueViolation recognizes translated and raw driver unique-constraint errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint failed")
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
