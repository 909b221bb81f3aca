package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"catalog-admin-service/internal/events"
	"catalog-admin-service/internal/middleware"
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/repository"
	"catalog-admin-service/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const productNotFound = "Product not found."

type ProductHandler struct {
	repo       *repository.ProductRepository
	categories *repository.CategoryRepository
	publisher  *events.Publisher
	pager      Pager
	logger     *logrus.Entry
}

func NewProductHandler(
	repo *repository.ProductRepository,
	categories *repository.CategoryRepository,
	publisher *events.Publisher,
	pager Pager,
	logger *logrus.Logger,
) *ProductHandler {
	return &ProductHandler{
		repo:       repo,
		categories: categories,
		publisher:  publisher,
		pager:      pager,
		logger:     logger.WithField("component", "handlers.products"),
	}
}

// productError maps a missing category reference to a validation error on category_id
func productError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrCategoryNotFound) {
		_ = c.Error(middleware.NewFieldError("category_id", "The selected category id is invalid."))
		return
	}
	repoError(c, err)
}

// adjustCount moves products_count of one category by delta. The product
// event subscriber resyncs from the products table behind it.
func (h *ProductHandler) adjustCount(c *gin.Context, id *uuid.UUID, delta int) {
	if id == nil || delta == 0 {
		return
	}
	ctx := c.Request.Context()
	var err error
	if delta > 0 {
		err = h.categories.IncrementProductsCount(ctx, *id, delta)
	} else {
		err = h.categories.DecrementProductsCount(ctx, *id, -delta)
	}
	if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
		h.logger.WithError(err).WithField("category_id", *id).Warn("Failed to adjust products count")
	}
}

// moveCount shifts one product from previous to next
func (h *ProductHandler) moveCount(c *gin.Context, previous, next *uuid.UUID) {
	if previous != nil && next != nil && *previous == *next {
		return
	}
	h.adjustCount(c, previous, -1)
	h.adjustCount(c, next, 1)
}

func (h *ProductHandler) publish(c *gin.Context, eventType string, product *models.Product, force bool, affected ...*uuid.UUID) {
	event := events.NewProductEvent(eventType, product, actorFrom(c), affected...)
	event.Force = force
	if err := h.publisher.PublishProduct(c.Request.Context(), event); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"event":      eventType,
			"product_id": product.ID,
		}).Warn("Failed to publish product event")
	}
}

func (h *ProductHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	return parseID(c, "id", productNotFound)
}

// ListProducts returns a filtered page of products
// GET /api/admin/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, limit := h.pager.Parse(c)
	filters := models.ProductFilters{
		Status:  models.ProductStatus(c.Query("status")),
		Search:  c.Query("search"),
		Trashed: models.ParseTrashed(c.Query("trashed")),
		Page:    page,
		Limit:   limit,
	}

	ctx := c.Request.Context()
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(middleware.NewFieldError("category_id", "The category id field must be a valid UUID."))
			return
		}
		filters.CategoryIDs = []uuid.UUID{categoryID}
		if include := queryBool(c, "include_subcategories"); include != nil && *include {
			ids, err := h.categories.SubtreeIDs(ctx, categoryID)
			if err != nil {
				productError(c, err)
				return
			}
			filters.CategoryIDs = ids
		}
	}

	products, total, err := h.repo.List(ctx, filters)
	if err != nil {
		repoError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	response.Success(c, http.StatusOK, "Products retrieved successfully.", gin.H{
		"products":   products,
		"pagination": models.NewPaginationInfo(page, limit, total),
	})
}

// GetProduct returns one product; trashed=with|only reaches trashed rows
// GET /api/admin/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	product, err := h.repo.Find(c.Request.Context(), id, models.ParseTrashed(c.Query("trashed")))
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Product retrieved successfully.", gin.H{"product": product})
}

// CreateProduct creates a product with a unique slug
// POST /api/admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product := req.ToProduct()
	if err := h.repo.Create(c.Request.Context(), product); err != nil {
		productError(c, err)
		return
	}

	h.adjustCount(c, product.CategoryID, 1)
	h.publish(c, events.ProductCreated, product, false)
	response.Success(c, http.StatusCreated, "Product created successfully.", gin.H{"product": product})
}

// UpdateProduct applies a partial update
// PUT /api/admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req models.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, previous, err := h.repo.Update(c.Request.Context(), id, &req)
	if err != nil {
		productError(c, err)
		return
	}

	h.moveCount(c, previous, product.CategoryID)
	h.publish(c, events.ProductUpdated, product, false, previous)
	response.Success(c, http.StatusOK, "Product updated successfully.", gin.H{"product": product})
}

// DeleteProduct moves a product to the trash, or with force=true removes it
// DELETE /api/admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	var (
		product *models.Product
		err     error
	)
	if force {
		product, err = h.repo.ForceDelete(c.Request.Context(), id)
	} else {
		product, err = h.repo.Delete(c.Request.Context(), id)
	}
	if err != nil {
		repoError(c, err)
		return
	}

	// a trashed product was already out of the count
	if !force || !product.DeletedAt.Valid {
		h.adjustCount(c, product.CategoryID, -1)
	}
	h.publish(c, events.ProductDeleted, product, force)

	if force {
		response.Success(c, http.StatusOK, "Product permanently deleted.", gin.H{"id": id, "lifecycle": models.LifecycleAbsent})
		return
	}
	response.Success(c, http.StatusOK, "Product moved to trash.", gin.H{"id": id, "lifecycle": models.LifecycleTrashed})
}

// RestoreProduct brings a trashed product back
// POST /api/admin/products/:id/restore
func (h *ProductHandler) RestoreProduct(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	product, err := h.repo.Restore(c.Request.Context(), id)
	if err != nil {
		repoError(c, err)
		return
	}

	h.adjustCount(c, product.CategoryID, 1)
	h.publish(c, events.ProductRestored, product, false)
	response.Success(c, http.StatusOK, "Product restored successfully.", gin.H{"product": product})
}
