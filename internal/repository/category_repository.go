package repository

import (
	"catalog-admin-service/internal/hierarchy"
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/slug"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	CategoryCacheTTL = 30 * time.Minute // Categories rarely change
	ForestCacheTTL   = 15 * time.Minute // Tree snapshot
)

const (
	categoryCacheKey = "catalog:categories:category:%s"
	forestCacheKey   = "catalog:categories:forest"
	categoryKind     = "category"
)

type CategoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCategoryRepository(db *gorm.DB, redis *redis.Client) *CategoryRepository {
	return &CategoryRepository{
		db:    db,
		redis: redis,
	}
}

// invalidateCategoryCaches drops the cached entities and the tree snapshot
func (r *CategoryRepository) invalidateCategoryCaches(ctx context.Context, ids ...uuid.UUID) {
	if r.redis == nil {
		return
	}

	keys := []string{forestCacheKey}
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(categoryCacheKey, id))
	}
	r.redis.Del(ctx, keys...)
}

func withTrashed(db *gorm.DB, trashed models.Trashed) *gorm.DB {
	switch trashed {
	case models.WithTrashed:
		return db.Unscoped()
	case models.OnlyTrashed:
		return db.Unscoped().Where("deleted_at IS NOT NULL")
	default:
		return db
	}
}

// Create assigns a unique slug and inserts the category. Slug resolution and
// insert share a transaction and are retried on a concurrent unique violation.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	desired := category.Slug
	err := withSlugRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if category.ParentID != nil {
				if err := ensureLiveCategory(tx, *category.ParentID); err != nil {
					return err
				}
			}
			resolved, err := resolveSlug(tx, &models.Category{}, desired, category.Name, categoryKind, nil)
			if err != nil {
				return err
			}
			category.Slug = resolved
			return tx.Create(category).Error
		})
	})
	if err != nil {
		return err
	}

	r.invalidateCategoryCaches(ctx)
	return nil
}

func ensureLiveCategory(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrParentNotFound
	}
	return nil
}

// GetByID retrieves a live category, served from cache when possible
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	cacheKey := fmt.Sprintf(categoryCacheKey, id)

	// Try to get from cache first
	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var category models.Category
			if err := json.Unmarshal([]byte(val), &category); err == nil {
				return &category, nil
			}
		}
	}

	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}

	// Cache the result
	if r.redis != nil {
		data, err := json.Marshal(category)
		if err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryCacheTTL)
		}
	}

	return &category, nil
}

// Find retrieves a category in any of the lifecycle states selected by trashed
func (r *CategoryRepository) Find(ctx context.Context, id uuid.UUID, trashed models.Trashed) (*models.Category, error) {
	if trashed == models.WithoutTrashed || trashed == "" {
		return r.GetByID(ctx, id)
	}
	var category models.Category
	if err := withTrashed(r.db.WithContext(ctx), trashed).First(&category, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return &category, nil
}

// GetBySlug retrieves a live category by slug
func (r *CategoryRepository) GetBySlug(ctx context.Context, s string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", s).First(&category).Error; err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return &category, nil
}

// State reports whether the row is active, trashed or absent
func (r *CategoryRepository) State(ctx context.Context, id uuid.UUID) (models.Lifecycle, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Unscoped().Select("id", "deleted_at").First(&category, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LifecycleAbsent, nil
	}
	if err != nil {
		return "", err
	}
	return category.Lifecycle(), nil
}

// List returns a page of categories ordered by sort_order, then name
func (r *CategoryRepository) List(ctx context.Context, filters models.CategoryFilters) ([]models.Category, int64, error) {
	query := withTrashed(r.db.WithContext(ctx).Model(&models.Category{}), filters.Trashed)

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Featured != nil {
		query = query.Where("is_featured = ?", *filters.Featured)
		if *filters.Featured {
			query = query.Where("status = ?", models.CategoryStatusActive)
		}
	}
	if filters.Root != nil {
		if *filters.Root {
			query = query.Where("parent_id IS NULL")
		} else {
			query = query.Where("parent_id IS NOT NULL")
		}
	}
	if filters.ParentID != nil {
		query = query.Where("parent_id = ?", *filters.ParentID)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var categories []models.Category
	query = query.Order("sort_order ASC").Order("name ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset((max(filters.Page, 1) - 1) * filters.Limit)
	}
	if err := query.Find(&categories).Error; err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

// Update applies req to the live category id. The slug is derived from the
// name only when it would otherwise be empty; an explicit slug that belongs to
// another live category is rejected with ErrSlugTaken.
func (r *CategoryRepository) Update(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error) {
	var updated *models.Category
	err := withSlugRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var category models.Category
			if err := tx.First(&category, "id = ?", id).Error; err != nil {
				return notFound(err, ErrCategoryNotFound)
			}

			req.Apply(&category)

			if req.ParentID.Set {
				parent := req.ParentID.Ptr()
				if parent != nil {
					tree, err := loadForest(tx)
					if err != nil {
						return err
					}
					switch err := tree.CheckReparent(category.ID, parent); {
					case errors.Is(err, hierarchy.ErrCycle):
						return ErrCategoryCycle
					case errors.Is(err, hierarchy.ErrNodeNotFound):
						return ErrParentNotFound
					case err != nil:
						return err
					}
				}
				category.ParentID = parent
			}

			if req.Slug != nil {
				category.Slug = slug.Make(category.Slug)
			}
			if category.Slug == "" {
				resolved, err := resolveSlug(tx, &models.Category{}, "", category.Name, categoryKind, &category.ID)
				if err != nil {
					return err
				}
				category.Slug = resolved
			} else if req.Slug != nil {
				taken, err := slugInUse(tx, &models.Category{}, category.Slug, category.ID)
				if err != nil {
					return err
				}
				if taken {
					return ErrSlugTaken
				}
			}

			// products_count is owned by the counter writers
			if err := tx.Omit("products_count").Save(&category).Error; err != nil {
				return err
			}
			if err := tx.First(&category, "id = ?", category.ID).Error; err != nil {
				return err
			}
			updated = &category
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	r.invalidateCategoryCaches(ctx, id)
	return updated, nil
}

// UpdateStatus updates the status of a single live category
func (r *CategoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CategoryStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	r.invalidateCategoryCaches(ctx, id)
	return nil
}

// Delete soft-deletes a live category. Products and children keep their references.
func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	// Invalidate caches after successful delete
	r.invalidateCategoryCaches(ctx, id)
	return nil
}

// ForceDelete detaches every product (trashed ones included) from the category
// and removes the row permanently. Children are not cascaded.
func (r *CategoryRepository) ForceDelete(ctx context.Context, id uuid.UUID) (detached int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Unscoped().Select("id").First(&category, "id = ?", id).Error; err != nil {
			return notFound(err, ErrCategoryNotFound)
		}

		result := tx.Unscoped().Model(&models.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil)
		if result.Error != nil {
			return fmt.Errorf("failed to detach products: %w", result.Error)
		}
		detached = result.RowsAffected

		return tx.Unscoped().Delete(&models.Category{}, "id = ?", id).Error
	})
	if err != nil {
		return 0, err
	}

	r.invalidateCategoryCaches(ctx, id)
	return detached, nil
}

// Restore clears deleted_at on a trashed category. A slug reused while it was
// trashed is renegotiated with a numeric suffix.
func (r *CategoryRepository) Restore(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var restored *models.Category
	err := withSlugRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var category models.Category
			if err := tx.Unscoped().Where("deleted_at IS NOT NULL").First(&category, "id = ?", id).Error; err != nil {
				return notFound(err, ErrCategoryNotFound)
			}

			taken, err := slugInUse(tx, &models.Category{}, category.Slug, category.ID)
			if err != nil {
				return err
			}
			if taken {
				resolved, err := resolveSlug(tx, &models.Category{}, category.Slug, category.Name, categoryKind, &category.ID)
				if err != nil {
					return err
				}
				category.Slug = resolved
			}

			if err := tx.Unscoped().Model(&category).Updates(map[string]interface{}{
				"slug":       category.Slug,
				"deleted_at": nil,
			}).Error; err != nil {
				return err
			}
			category.DeletedAt = gorm.DeletedAt{}
			restored = &category
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	r.invalidateCategoryCaches(ctx, id)
	return restored, nil
}

// ============================================================================
// Tree
// ============================================================================

func loadForest(tx *gorm.DB) (*hierarchy.Tree, error) {
	nodes, err := loadNodes(tx)
	if err != nil {
		return nil, err
	}
	return hierarchy.New(nodes), nil
}

func loadNodes(tx *gorm.DB) ([]hierarchy.Node, error) {
	var rows []models.Category
	if err := tx.Model(&models.Category{}).
		Select("id", "parent_id", "name", "slug", "sort_order").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}
	nodes := make([]hierarchy.Node, len(rows))
	for i, row := range rows {
		nodes[i] = hierarchy.Node{ID: row.ID, ParentID: row.ParentID, Name: row.Name, Slug: row.Slug, SortOrder: row.SortOrder}
	}
	return nodes, nil
}

// Forest returns a snapshot of all live categories, served from cache when possible
func (r *CategoryRepository) Forest(ctx context.Context) (*hierarchy.Tree, error) {
	if r.redis != nil {
		val, err := r.redis.Get(ctx, forestCacheKey).Result()
		if err == nil {
			var nodes []hierarchy.Node
			if err := json.Unmarshal([]byte(val), &nodes); err == nil {
				return hierarchy.New(nodes), nil
			}
		}
	}

	nodes, err := loadNodes(r.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		data, err := json.Marshal(nodes)
		if err == nil {
			r.redis.Set(ctx, forestCacheKey, data, ForestCacheTTL)
		}
	}

	return hierarchy.New(nodes), nil
}

func treeError(err error) error {
	if errors.Is(err, hierarchy.ErrNodeNotFound) {
		return ErrCategoryNotFound
	}
	return err
}

// Ancestors returns the live ancestors of id, root first
func (r *CategoryRepository) Ancestors(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	tree, err := r.Forest(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := tree.Ancestors(id)
	if err != nil {
		return nil, treeError(err)
	}
	ids := make([]uuid.UUID, len(chain))
	for i, n := range chain {
		ids[i] = n.ID
	}
	return r.findOrdered(ctx, ids)
}

// Children returns the live direct children of id ordered by sort_order, then name
func (r *CategoryRepository) Children(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	var children []models.Category
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", id).
		Order("sort_order ASC").Order("name ASC").
		Find(&children).Error
	return children, err
}

// DescendantIDs lists the ids below id in depth-first order, excluding id
func (r *CategoryRepository) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	tree, err := r.Forest(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := tree.DescendantIDs(id)
	return ids, treeError(err)
}

// SubtreeIDs lists id followed by its descendants
func (r *CategoryRepository) SubtreeIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	tree, err := r.Forest(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := tree.SubtreeIDs(id)
	return ids, treeError(err)
}

// FindMany loads live categories keeping the order of ids
func (r *CategoryRepository) FindMany(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	return r.findOrdered(ctx, ids)
}

func (r *CategoryRepository) findOrdered(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	var rows []models.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Category, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}

// ============================================================================
// Product counters
// ============================================================================

// SyncProductsCount stores the number of live products in the category
func (r *CategoryRepository) SyncProductsCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Unscoped().Model(&models.Category{}).Where("id = ?", id).Update("products_count", count)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrCategoryNotFound
	}
	r.invalidateCategoryCaches(ctx, id)
	return int(count), nil
}

// SyncAllProductsCounts recomputes products_count for every category in one statement
func (r *CategoryRepository) SyncAllProductsCounts(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Unscoped().Model(&models.Category{}).
		Where("id IS NOT NULL").
		Update("products_count", gorm.Expr(
			"(SELECT COUNT(*) FROM products WHERE products.category_id = categories.id AND products.deleted_at IS NULL)",
		))
	if result.Error != nil {
		return 0, result.Error
	}
	if r.redis != nil {
		keys, _ := r.redis.Keys(ctx, "catalog:categories:*").Result()
		if len(keys) > 0 {
			r.redis.Del(ctx, keys...)
		}
	}
	return result.RowsAffected, nil
}

// IncrementProductsCount adds n to the counter
func (r *CategoryRepository) IncrementProductsCount(ctx context.Context, id uuid.UUID, n int) error {
	result := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).
		UpdateColumn("products_count", gorm.Expr("products_count + ?", n))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	r.invalidateCategoryCaches(ctx, id)
	return nil
}

// DecrementProductsCount subtracts n from the counter without going below zero
func (r *CategoryRepository) DecrementProductsCount(ctx context.Context, id uuid.UUID, n int) error {
	result := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).
		UpdateColumn("products_count", gorm.Expr("CASE WHEN products_count > ? THEN products_count - ? ELSE 0 END", n, n))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	r.invalidateCategoryCaches(ctx, id)
	return nil
}

// ============================================================================
// Bulk Operations
// ============================================================================

// BulkCreateResult represents the result of a bulk create operation
type BulkCreateResult struct {
	Created []*models.Category
	Errors  []BulkCreateError
	Total   int
	Success int
	Failed  int
}

// BulkCreateError represents an error for a single item in bulk create
type BulkCreateError struct {
	Index int
	Err   error
}

// BulkCreate creates each category independently so one failure does not roll back the others
func (r *CategoryRepository) BulkCreate(ctx context.Context, categories []*models.Category) *BulkCreateResult {
	result := &BulkCreateResult{
		Created: make([]*models.Category, 0, len(categories)),
		Errors:  make([]BulkCreateError, 0),
		Total:   len(categories),
	}

	for i, category := range categories {
		if err := r.Create(ctx, category); err != nil {
			result.Errors = append(result.Errors, BulkCreateError{Index: i, Err: err})
			continue
		}
		result.Created = append(result.Created, category)
	}

	result.Success = len(result.Created)
	result.Failed = len(result.Errors)
	return result
}

// BulkDelete soft-deletes (or, with force, permanently deletes) the given categories
func (r *CategoryRepository) BulkDelete(ctx context.Context, ids []uuid.UUID, force bool) (*models.BulkResult, error) {
	result := &models.BulkResult{TotalCount: len(ids)}
	for _, id := range ids {
		var err error
		if force {
			_, err = r.ForceDelete(ctx, id)
		} else {
			err = r.Delete(ctx, id)
		}
		if err != nil {
			if !errors.Is(err, ErrCategoryNotFound) {
				return result, err
			}
			result.FailedIDs = append(result.FailedIDs, id.String())
			continue
		}
		result.AffectedCount++
	}
	return result, nil
}

// BulkRestore restores the given trashed categories
func (r *CategoryRepository) BulkRestore(ctx context.Context, ids []uuid.UUID) (*models.BulkResult, error) {
	result := &models.BulkResult{TotalCount: len(ids)}
	for _, id := range ids {
		if _, err := r.Restore(ctx, id); err != nil {
			if !errors.Is(err, ErrCategoryNotFound) {
				return result, err
			}
			result.FailedIDs = append(result.FailedIDs, id.String())
			continue
		}
		result.AffectedCount++
	}
	return result, nil
}

// BulkUpdateStatus updates the status of multiple live categories
func (r *CategoryRepository) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status models.CategoryStatus) (*models.BulkResult, error) {
	result := &models.BulkResult{TotalCount: len(ids)}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Model(&models.Category{}).Where("id = ?", id).Update("status", status)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				result.FailedIDs = append(result.FailedIDs, id.String())
				continue
			}
			result.AffectedCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AffectedCount > 0 {
		r.invalidateCategoryCaches(ctx, ids...)
	}
	return result, nil
}
