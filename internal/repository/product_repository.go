package repository

import (
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/slug"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const productKind = "product"

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// checkIdentifiers rejects a sku or barcode owned by another product, trashed
// ones included since the unique index covers every row.
func checkIdentifiers(tx *gorm.DB, product *models.Product) error {
	check := func(column string, value *string, sentinel error) error {
		if value == nil || *value == "" {
			return nil
		}
		var count int64
		query := tx.Unscoped().Model(&models.Product{}).Where(column+" = ?", *value)
		if product.ID != uuid.Nil {
			query = query.Where("id <> ?", product.ID)
		}
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return sentinel
		}
		return nil
	}
	if err := check("sku", product.SKU, ErrSKUTaken); err != nil {
		return err
	}
	return check("barcode", product.Barcode, ErrBarcodeTaken)
}

func ensureCategory(tx *gorm.DB, id uuid.UUID) error {
	if err := ensureLiveCategory(tx, id); err != nil {
		if errors.Is(err, ErrParentNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Create validates the category reference, assigns a unique slug and inserts the product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	desired := product.Slug
	product.SKU = blankToNil(product.SKU)
	product.Barcode = blankToNil(product.Barcode)

	return withSlugRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if product.CategoryID != nil {
				if err := ensureCategory(tx, *product.CategoryID); err != nil {
					return err
				}
			}
			if err := checkIdentifiers(tx, product); err != nil {
				return err
			}
			resolved, err := resolveSlug(tx, &models.Product{}, desired, product.Name, productKind, nil)
			if err != nil {
				return err
			}
			product.Slug = resolved
			return tx.Create(product).Error
		})
	})
}

// Find retrieves a product in the lifecycle states selected by trashed, with its category
func (r *ProductRepository) Find(ctx context.Context, id uuid.UUID, trashed models.Trashed) (*models.Product, error) {
	var product models.Product
	err := withTrashed(r.db.WithContext(ctx), trashed).
		Preload("Category").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return &product, nil
}

// GetByID retrieves a live product
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.Find(ctx, id, models.WithoutTrashed)
}

// List returns a page of products ordered by sort_order, then name
func (r *ProductRepository) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	query := withTrashed(r.db.WithContext(ctx).Model(&models.Product{}), filters.Trashed)

	if len(filters.CategoryIDs) > 0 {
		query = query.Where("category_id IN ?", filters.CategoryIDs)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ? OR description LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	query = query.Preload("Category").Order("sort_order ASC").Order("name ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset((max(filters.Page, 1) - 1) * filters.Limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update applies req to a live product and returns it with the category it
// was attached to before the update.
func (r *ProductRepository) Update(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, *uuid.UUID, error) {
	var (
		updated  *models.Product
		previous *uuid.UUID
	)
	err := withSlugRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var product models.Product
			if err := tx.First(&product, "id = ?", id).Error; err != nil {
				return notFound(err, ErrProductNotFound)
			}
			previous = product.CategoryID

			req.Apply(&product)
			product.SKU = blankToNil(product.SKU)
			product.Barcode = blankToNil(product.Barcode)

			if req.CategoryID.Set && product.CategoryID != nil {
				if err := ensureCategory(tx, *product.CategoryID); err != nil {
					return err
				}
			}
			if err := checkIdentifiers(tx, &product); err != nil {
				return err
			}

			if req.Slug != nil {
				product.Slug = slug.Make(product.Slug)
			}
			if product.Slug == "" {
				resolved, err := resolveSlug(tx, &models.Product{}, "", product.Name, productKind, &product.ID)
				if err != nil {
					return err
				}
				product.Slug = resolved
			} else if req.Slug != nil {
				taken, err := slugInUse(tx, &models.Product{}, product.Slug, product.ID)
				if err != nil {
					return err
				}
				if taken {
					return ErrSlugTaken
				}
			}

			product.Category = nil
			if err := tx.Omit("Category").Save(&product).Error; err != nil {
				return err
			}
			updated = &product
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, previous, nil
}

// Delete soft-deletes a live product and returns it
func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	if err := r.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ForceDelete permanently removes a product in any lifecycle state
func (r *ProductRepository) ForceDelete(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Unscoped().First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	if err := r.db.WithContext(ctx).Unscoped().Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Restore clears deleted_at on a trashed product, renegotiating its slug when
// another live product took it in the meantime.
func (r *ProductRepository) Restore(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var restored *models.Product
	err := withSlugRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var product models.Product
			if err := tx.Unscoped().Where("deleted_at IS NOT NULL").First(&product, "id = ?", id).Error; err != nil {
				return notFound(err, ErrProductNotFound)
			}

			taken, err := slugInUse(tx, &models.Product{}, product.Slug, product.ID)
			if err != nil {
				return err
			}
			if taken {
				resolved, err := resolveSlug(tx, &models.Product{}, product.Slug, product.Name, productKind, &product.ID)
				if err != nil {
					return err
				}
				product.Slug = resolved
			}

			if err := tx.Unscoped().Model(&product).Updates(map[string]interface{}{
				"slug":       product.Slug,
				"deleted_at": nil,
			}).Error; err != nil {
				return err
			}
			product.DeletedAt = gorm.DeletedAt{}
			restored = &product
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// CountByCategory counts the products referencing categoryID in the selected lifecycle states
func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID, trashed models.Trashed) (int64, error) {
	var count int64
	err := withTrashed(r.db.WithContext(ctx).Model(&models.Product{}), trashed).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}
