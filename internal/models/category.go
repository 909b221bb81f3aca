package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryStatus represents the possible states of a category
type CategoryStatus string

const (
	CategoryStatusActive   CategoryStatus = "active"
	CategoryStatusInactive CategoryStatus = "inactive"
	CategoryStatusArchived CategoryStatus = "archived"
)

// DisplayLayout controls how a category page lists its products
type DisplayLayout string

const (
	LayoutGrid     DisplayLayout = "grid"
	LayoutList     DisplayLayout = "list"
	LayoutCarousel DisplayLayout = "carousel"
)

var CategoryStatusOptions = map[CategoryStatus]string{
	CategoryStatusActive:   "Active",
	CategoryStatusInactive: "Inactive",
	CategoryStatusArchived: "Archived",
}

var DisplayLayoutOptions = map[DisplayLayout]string{
	LayoutGrid:     "Grid",
	LayoutList:     "List",
	LayoutCarousel: "Carousel",
}

// DefaultCategoryImage is served when a category has no image of its own
const DefaultCategoryImage = "images/default-category.jpg"

// Category represents a product category
type Category struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string         `json:"name" gorm:"not null"`
	Slug            string         `json:"slug" gorm:"not null;uniqueIndex:idx_categories_slug_live,where:deleted_at IS NULL"`
	Description     *string        `json:"description"`
	ParentID        *uuid.UUID     `json:"parent_id" gorm:"type:uuid;index"`
	UserID          *uuid.UUID     `json:"user_id" gorm:"type:uuid;index"`
	Status          CategoryStatus `json:"status" gorm:"not null;default:'active';index"`
	IsFeatured      bool           `json:"is_featured" gorm:"not null;default:false"`
	MetaTitle       *string        `json:"meta_title"`
	MetaDescription *string        `json:"meta_description"`
	MetaKeywords    *string        `json:"meta_keywords"`
	Image           *string        `json:"image"`
	BannerImage     *string        `json:"banner_image"`
	Icon            *string        `json:"icon"`
	SortOrder       int            `json:"sort_order" gorm:"not null;default:0"`
	DisplayLayout   DisplayLayout  `json:"display_layout" gorm:"not null;default:'grid'"`
	ProductsCount   int            `json:"products_count" gorm:"not null;default:0"`
	Attributes      JSON           `json:"attributes" gorm:"type:jsonb"`
	Filters         JSON           `json:"filters" gorm:"type:jsonb"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CategoryStatusActive
	}
	if c.DisplayLayout == "" {
		c.DisplayLayout = LayoutGrid
	}
	return nil
}

func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

func (c *Category) Lifecycle() Lifecycle {
	return LifecycleOf(c.DeletedAt)
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// CreateCategoryRequest represents a request to create a new category
type CreateCategoryRequest struct {
	Name            string          `json:"name" form:"name" binding:"required,max=255"`
	Slug            *string         `json:"slug,omitempty" form:"slug" binding:"omitempty,max=255"`
	Description     *string         `json:"description,omitempty" form:"description"`
	ParentID        *uuid.UUID      `json:"parent_id,omitempty" form:"parent_id"`
	Status          *CategoryStatus `json:"status,omitempty" form:"status" binding:"omitempty,oneof=active inactive archived"`
	IsFeatured      *bool           `json:"is_featured,omitempty" form:"is_featured"`
	MetaTitle       *string         `json:"meta_title,omitempty" form:"meta_title" binding:"omitempty,max=255"`
	MetaDescription *string         `json:"meta_description,omitempty" form:"meta_description" binding:"omitempty,max=500"`
	MetaKeywords    *string         `json:"meta_keywords,omitempty" form:"meta_keywords" binding:"omitempty,max=255"`
	Image           *string         `json:"image,omitempty" form:"image"`
	BannerImage     *string         `json:"banner_image,omitempty" form:"banner_image"`
	Icon            *string         `json:"icon,omitempty" form:"icon"`
	SortOrder       *int            `json:"sort_order,omitempty" form:"sort_order" binding:"omitempty,min=0"`
	DisplayLayout   *DisplayLayout  `json:"display_layout,omitempty" form:"display_layout" binding:"omitempty,oneof=grid list carousel"`
	Attributes      JSON            `json:"attributes,omitempty"`
	Filters         JSON            `json:"filters,omitempty"`
	// ExternalID lets bulk and import callers correlate results
	ExternalID      *string         `json:"external_id,omitempty"`
}

// ToCategory builds an unsaved category; the slug is finalized by the repository.
func (r *CreateCategoryRequest) ToCategory() *Category {
	category := &Category{
		Name:            r.Name,
		Description:     r.Description,
		ParentID:        r.ParentID,
		Status:          CategoryStatusActive,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		MetaKeywords:    r.MetaKeywords,
		Image:           r.Image,
		BannerImage:     r.BannerImage,
		Icon:            r.Icon,
		DisplayLayout:   LayoutGrid,
		Attributes:      r.Attributes,
		Filters:         r.Filters,
	}
	if r.Slug != nil {
		category.Slug = *r.Slug
	}
	if r.Status != nil {
		category.Status = *r.Status
	}
	if r.IsFeatured != nil {
		category.IsFeatured = *r.IsFeatured
	}
	if r.SortOrder != nil {
		category.SortOrder = *r.SortOrder
	}
	if r.DisplayLayout != nil {
		category.DisplayLayout = *r.DisplayLayout
	}
	return category
}

// UpdateCategoryRequest represents a partial category update
type UpdateCategoryRequest struct {
	Name            *string         `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Slug            *string         `json:"slug,omitempty" binding:"omitempty,max=255"`
	Description     *string         `json:"description,omitempty"`
	ParentID        OptionalUUID    `json:"parent_id"`
	Status          *CategoryStatus `json:"status,omitempty" binding:"omitempty,oneof=active inactive archived"`
	IsFeatured      *bool           `json:"is_featured,omitempty"`
	MetaTitle       *string         `json:"meta_title,omitempty" binding:"omitempty,max=255"`
	MetaDescription *string         `json:"meta_description,omitempty" binding:"omitempty,max=500"`
	MetaKeywords    *string         `json:"meta_keywords,omitempty" binding:"omitempty,max=255"`
	Image           *string         `json:"image,omitempty"`
	BannerImage     *string         `json:"banner_image,omitempty"`
	Icon            *string         `json:"icon,omitempty"`
	SortOrder       *int            `json:"sort_order,omitempty" binding:"omitempty,min=0"`
	DisplayLayout   *DisplayLayout  `json:"display_layout,omitempty" binding:"omitempty,oneof=grid list carousel"`
	Attributes      JSON            `json:"attributes,omitempty"`
	Filters         JSON            `json:"filters,omitempty"`
}

// Apply copies the present fields onto category.
// Parent reassignment is left to the repository so it can be checked for cycles.
func (r *UpdateCategoryRequest) Apply(category *Category) {
	if r.Name != nil {
		category.Name = *r.Name
	}
	if r.Slug != nil {
		category.Slug = *r.Slug
	}
	if r.Description != nil {
		category.Description = r.Description
	}
	if r.Status != nil {
		category.Status = *r.Status
	}
	if r.IsFeatured != nil {
		category.IsFeatured = *r.IsFeatured
	}
	if r.MetaTitle != nil {
		category.MetaTitle = r.MetaTitle
	}
	if r.MetaDescription != nil {
		category.MetaDescription = r.MetaDescription
	}
	if r.MetaKeywords != nil {
		category.MetaKeywords = r.MetaKeywords
	}
	if r.Image != nil {
		category.Image = r.Image
	}
	if r.BannerImage != nil {
		category.BannerImage = r.BannerImage
	}
	if r.Icon != nil {
		category.Icon = r.Icon
	}
	if r.SortOrder != nil {
		category.SortOrder = *r.SortOrder
	}
	if r.DisplayLayout != nil {
		category.DisplayLayout = *r.DisplayLayout
	}
	if r.Attributes != nil {
		category.Attributes = r.Attributes
	}
	if r.Filters != nil {
		category.Filters = r.Filters
	}
}

// CategoryFilters represents filters for category listings
type CategoryFilters struct {
	Status   CategoryStatus
	Featured *bool
	Root     *bool
	ParentID *uuid.UUID
	Search   string
	Trashed  Trashed
	Page     int
	Limit    int
}

// BulkCreateCategoriesRequest represents bulk create request
type BulkCreateCategoriesRequest struct {
	Categories []CreateCategoryRequest `json:"categories" binding:"required,min=1,max=100,dive"`
}

// BulkCreateResultItem represents result for a single item
type BulkCreateResultItem struct {
	Index      int       `json:"index"`
	ExternalID *string   `json:"external_id,omitempty"`
	Success    bool      `json:"success"`
	Category   *Category `json:"category,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// BulkUpdateCategoryStatusRequest represents bulk status update request
type BulkUpdateCategoryStatusRequest struct {
	IDs    []uuid.UUID    `json:"ids" binding:"required,min=1,max=100"`
	Status CategoryStatus `json:"status" binding:"required,oneof=active inactive archived"`
}
