package repository

import (
	"fmt"

	"catalog-admin-service/internal/slug"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxSlugAttempts bounds the retries when a concurrent writer takes the resolved slug.
const maxSlugAttempts = 5

// takenSlugs returns live slugs equal to base or of the form base-N.
// Soft-deleted rows do not reserve their slug.
func takenSlugs(tx *gorm.DB, model interface{}, base string, except *uuid.UUID) ([]string, error) {
	var slugs []string
	query := tx.Model(model).Where("slug = ? OR slug LIKE ?", base, base+"-%")
	if except != nil {
		query = query.Where("id <> ?", *except)
	}
	if err := query.Pluck("slug", &slugs).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing slugs: %w", err)
	}
	return slugs, nil
}

// resolveSlug normalizes desired (or name when desired is empty) and picks the
// first free variant. kind is the base when normalization leaves nothing.
func resolveSlug(tx *gorm.DB, model interface{}, desired, name, kind string, except *uuid.UUID) (string, error) {
	base := slug.Make(desired)
	if base == "" {
		base = slug.Make(name)
	}
	if base == "" {
		base = kind
	}
	existing, err := takenSlugs(tx, model, base, except)
	if err != nil {
		return "", err
	}
	return slug.ResolveAgainst(base, existing)
}

// slugInUse reports whether a live row other than except owns s.
func slugInUse(tx *gorm.DB, model interface{}, s string, except uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(model).Where("slug = ? AND id <> ?", s, except).Count(&count).Error
	return count > 0, err
}

// withSlugRetry reruns fn while it fails on a unique violation.
func withSlugRetry(fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isUniqueViolation(err) {
			return err
		}
		if attempt >= maxSlugAttempts {
			return fmt.Errorf("%w: %v", ErrSlugConflict, err)
		}
	}
}
