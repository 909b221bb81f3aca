package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusArchived ProductStatus = "archived"
)

// Product is a catalog item, optionally attached to a category
type Product struct {
	ID                      uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	Name                    string              `json:"name" gorm:"not null"`
	Slug                    string              `json:"slug" gorm:"not null;uniqueIndex:idx_products_slug_live,where:deleted_at IS NULL"`
	Description             *string             `json:"description"`
	ShortDescription        *string             `json:"short_description"`
	Price                   decimal.Decimal     `json:"price" gorm:"type:decimal(10,2);not null"`
	ComparePrice            decimal.NullDecimal `json:"compare_price" gorm:"type:decimal(10,2)"`
	CostPrice               decimal.NullDecimal `json:"cost_price" gorm:"type:decimal(10,2)"`
	Quantity                int                 `json:"quantity" gorm:"not null;default:0"`
	SKU                     *string             `json:"sku" gorm:"column:sku;uniqueIndex:idx_products_sku"`
	Barcode                 *string             `json:"barcode" gorm:"uniqueIndex:idx_products_barcode"`
	TrackQuantity           bool                `json:"track_quantity" gorm:"not null"`
	AllowOutOfStockPurchase bool                `json:"allow_out_of_stock_purchase" gorm:"not null;default:false"`
	CategoryID              *uuid.UUID          `json:"category_id" gorm:"type:uuid;index"`
	BrandID                 *uuid.UUID          `json:"brand_id" gorm:"type:uuid;index"`
	Status                  ProductStatus       `json:"status" gorm:"not null;default:'draft';index"`
	IsFeatured              bool                `json:"is_featured" gorm:"not null;default:false"`
	IsBestseller            bool                `json:"is_bestseller" gorm:"not null;default:false"`
	IsNew                   bool                `json:"is_new" gorm:"not null"`
	Weight                  decimal.NullDecimal `json:"weight" gorm:"type:decimal(8,2)"`
	Length                  decimal.NullDecimal `json:"length" gorm:"type:decimal(8,2)"`
	Width                   decimal.NullDecimal `json:"width" gorm:"type:decimal(8,2)"`
	Height                  decimal.NullDecimal `json:"height" gorm:"type:decimal(8,2)"`
	MetaTitle               *string             `json:"meta_title"`
	MetaDescription         *string             `json:"meta_description"`
	MetaKeywords            *string             `json:"meta_keywords"`
	MainImage               *string             `json:"main_image"`
	GalleryImages           JSONArray           `json:"gallery_images" gorm:"type:jsonb"`
	Specifications          JSON                `json:"specifications" gorm:"type:jsonb"`
	Tags                    JSONArray           `json:"tags" gorm:"type:jsonb"`
	Views                   int                 `json:"views" gorm:"not null;default:0"`
	SalesCount              int                 `json:"sales_count" gorm:"not null;default:0"`
	Rating                  decimal.Decimal     `json:"rating" gorm:"type:decimal(3,2);not null"`
	ReviewsCount            int                 `json:"reviews_count" gorm:"not null;default:0"`
	PublishedAt             *time.Time          `json:"published_at"`
	FeaturedUntil           *time.Time          `json:"featured_until"`
	SortOrder               int                 `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
	DeletedAt               gorm.DeletedAt      `json:"deleted_at" gorm:"index"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProductStatusDraft
	}
	return nil
}

func (p *Product) Lifecycle() Lifecycle {
	return LifecycleOf(p.DeletedAt)
}

func (Product) TableName() string {
	return "products"
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name                    string           `json:"name" binding:"required,max=255"`
	Slug                    *string          `json:"slug,omitempty" binding:"omitempty,max=255"`
	Description             *string          `json:"description,omitempty"`
	ShortDescription        *string          `json:"short_description,omitempty" binding:"omitempty,max=500"`
	Price                   *decimal.Decimal `json:"price" binding:"required"`
	ComparePrice            *decimal.Decimal `json:"compare_price,omitempty"`
	CostPrice               *decimal.Decimal `json:"cost_price,omitempty"`
	Quantity                *int             `json:"quantity,omitempty" binding:"omitempty,min=0"`
	SKU                     *string          `json:"sku,omitempty" binding:"omitempty,max=100"`
	Barcode                 *string          `json:"barcode,omitempty" binding:"omitempty,max=100"`
	TrackQuantity           *bool            `json:"track_quantity,omitempty"`
	AllowOutOfStockPurchase *bool            `json:"allow_out_of_stock_purchase,omitempty"`
	CategoryID              *uuid.UUID       `json:"category_id,omitempty"`
	BrandID                 *uuid.UUID       `json:"brand_id,omitempty"`
	Status                  *ProductStatus   `json:"status,omitempty" binding:"omitempty,oneof=draft active inactive archived"`
	IsFeatured              *bool            `json:"is_featured,omitempty"`
	IsBestseller            *bool            `json:"is_bestseller,omitempty"`
	IsNew                   *bool            `json:"is_new,omitempty"`
	Weight                  *decimal.Decimal `json:"weight,omitempty"`
	Length                  *decimal.Decimal `json:"length,omitempty"`
	Width                   *decimal.Decimal `json:"width,omitempty"`
	Height                  *decimal.Decimal `json:"height,omitempty"`
	MetaTitle               *string          `json:"meta_title,omitempty" binding:"omitempty,max=255"`
	MetaDescription         *string          `json:"meta_description,omitempty" binding:"omitempty,max=500"`
	MetaKeywords            *string          `json:"meta_keywords,omitempty" binding:"omitempty,max=255"`
	MainImage               *string          `json:"main_image,omitempty"`
	GalleryImages           JSONArray        `json:"gallery_images,omitempty"`
	Specifications          JSON             `json:"specifications,omitempty"`
	Tags                    JSONArray        `json:"tags,omitempty"`
	PublishedAt             *time.Time       `json:"published_at,omitempty"`
	FeaturedUntil           *time.Time       `json:"featured_until,omitempty"`
	SortOrder               *int             `json:"sort_order,omitempty" binding:"omitempty,min=0"`
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// ToProduct builds an unsaved product with the catalog defaults applied
func (r *CreateProductRequest) ToProduct() *Product {
	product := &Product{
		Name:                    r.Name,
		Description:             r.Description,
		ShortDescription:        r.ShortDescription,
		ComparePrice:            nullDecimal(r.ComparePrice),
		CostPrice:               nullDecimal(r.CostPrice),
		SKU:                     r.SKU,
		Barcode:                 r.Barcode,
		TrackQuantity:           boolOr(r.TrackQuantity, true),
		AllowOutOfStockPurchase: boolOr(r.AllowOutOfStockPurchase, false),
		CategoryID:              r.CategoryID,
		BrandID:                 r.BrandID,
		Status:                  ProductStatusDraft,
		IsFeatured:              boolOr(r.IsFeatured, false),
		IsBestseller:            boolOr(r.IsBestseller, false),
		IsNew:                   boolOr(r.IsNew, true),
		Weight:                  nullDecimal(r.Weight),
		Length:                  nullDecimal(r.Length),
		Width:                   nullDecimal(r.Width),
		Height:                  nullDecimal(r.Height),
		MetaTitle:               r.MetaTitle,
		MetaDescription:         r.MetaDescription,
		MetaKeywords:            r.MetaKeywords,
		MainImage:               r.MainImage,
		GalleryImages:           r.GalleryImages,
		Specifications:          r.Specifications,
		Tags:                    r.Tags,
		PublishedAt:             r.PublishedAt,
		FeaturedUntil:           r.FeaturedUntil,
	}
	if r.Price != nil {
		product.Price = *r.Price
	}
	if r.Slug != nil {
		product.Slug = *r.Slug
	}
	if r.Quantity != nil {
		product.Quantity = *r.Quantity
	}
	if r.Status != nil {
		product.Status = *r.Status
	}
	if r.SortOrder != nil {
		product.SortOrder = *r.SortOrder
	}
	return product
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name                    *string          `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Slug                    *string          `json:"slug,omitempty" binding:"omitempty,max=255"`
	Description             *string          `json:"description,omitempty"`
	ShortDescription        *string          `json:"short_description,omitempty" binding:"omitempty,max=500"`
	Price                   *decimal.Decimal `json:"price,omitempty"`
	ComparePrice            *decimal.Decimal `json:"compare_price,omitempty"`
	CostPrice               *decimal.Decimal `json:"cost_price,omitempty"`
	Quantity                *int             `json:"quantity,omitempty" binding:"omitempty,min=0"`
	SKU                     *string          `json:"sku,omitempty" binding:"omitempty,max=100"`
	Barcode                 *string          `json:"barcode,omitempty" binding:"omitempty,max=100"`
	TrackQuantity           *bool            `json:"track_quantity,omitempty"`
	AllowOutOfStockPurchase *bool            `json:"allow_out_of_stock_purchase,omitempty"`
	CategoryID              OptionalUUID     `json:"category_id"`
	BrandID                 OptionalUUID     `json:"brand_id"`
	Status                  *ProductStatus   `json:"status,omitempty" binding:"omitempty,oneof=draft active inactive archived"`
	IsFeatured              *bool            `json:"is_featured,omitempty"`
	IsBestseller            *bool            `json:"is_bestseller,omitempty"`
	IsNew                   *bool            `json:"is_new,omitempty"`
	MetaTitle               *string          `json:"meta_title,omitempty" binding:"omitempty,max=255"`
	MetaDescription         *string          `json:"meta_description,omitempty" binding:"omitempty,max=500"`
	MetaKeywords            *string          `json:"meta_keywords,omitempty" binding:"omitempty,max=255"`
	MainImage               *string          `json:"main_image,omitempty"`
	GalleryImages           JSONArray        `json:"gallery_images,omitempty"`
	Specifications          JSON             `json:"specifications,omitempty"`
	Tags                    JSONArray        `json:"tags,omitempty"`
	PublishedAt             *time.Time       `json:"published_at,omitempty"`
	FeaturedUntil           *time.Time       `json:"featured_until,omitempty"`
	SortOrder               *int             `json:"sort_order,omitempty" binding:"omitempty,min=0"`
}

// Apply copies the present fields onto product.
func (r *UpdateProductRequest) Apply(product *Product) {
	if r.Name != nil {
		product.Name = *r.Name
	}
	if r.Slug != nil {
		product.Slug = *r.Slug
	}
	if r.Description != nil {
		product.Description = r.Description
	}
	if r.ShortDescription != nil {
		product.ShortDescription = r.ShortDescription
	}
	if r.Price != nil {
		product.Price = *r.Price
	}
	if r.ComparePrice != nil {
		product.ComparePrice = nullDecimal(r.ComparePrice)
	}
	if r.CostPrice != nil {
		product.CostPrice = nullDecimal(r.CostPrice)
	}
	if r.Quantity != nil {
		product.Quantity = *r.Quantity
	}
	if r.SKU != nil {
		product.SKU = r.SKU
	}
	if r.Barcode != nil {
		product.Barcode = r.Barcode
	}
	if r.TrackQuantity != nil {
		product.TrackQuantity = *r.TrackQuantity
	}
	if r.AllowOutOfStockPurchase != nil {
		product.AllowOutOfStockPurchase = *r.AllowOutOfStockPurchase
	}
	if r.CategoryID.Set {
		product.CategoryID = r.CategoryID.Ptr()
	}
	if r.BrandID.Set {
		product.BrandID = r.BrandID.Ptr()
	}
	if r.Status != nil {
		product.Status = *r.Status
	}
	if r.IsFeatured != nil {
		product.IsFeatured = *r.IsFeatured
	}
	if r.IsBestseller != nil {
		product.IsBestseller = *r.IsBestseller
	}
	if r.IsNew != nil {
		product.IsNew = *r.IsNew
	}
	if r.MetaTitle != nil {
		product.MetaTitle = r.MetaTitle
	}
	if r.MetaDescription != nil {
		product.MetaDescription = r.MetaDescription
	}
	if r.MetaKeywords != nil {
		product.MetaKeywords = r.MetaKeywords
	}
	if r.MainImage != nil {
		product.MainImage = r.MainImage
	}
	if r.GalleryImages != nil {
		product.GalleryImages = r.GalleryImages
	}
	if r.Specifications != nil {
		product.Specifications = r.Specifications
	}
	if r.Tags != nil {
		product.Tags = r.Tags
	}
	if r.PublishedAt != nil {
		product.PublishedAt = r.PublishedAt
	}
	if r.FeaturedUntil != nil {
		product.FeaturedUntil = r.FeaturedUntil
	}
	if r.SortOrder != nil {
		product.SortOrder = *r.SortOrder
	}
}

// ProductFilters represents filters for product listings
type ProductFilters struct {
	CategoryIDs []uuid.UUID
	Status      ProductStatus
	Search      string
	Trashed     Trashed
	Page        int
	Limit       int
}
