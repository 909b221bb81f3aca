package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"catalog-admin-service/internal/events"
	"catalog-admin-service/internal/hierarchy"
	"catalog-admin-service/internal/middleware"
	"catalog-admin-service/internal/models"
	"catalog-admin-service/internal/repository"
	"catalog-admin-service/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const categoryNotFound = "Category not found."

type CategoryHandler struct {
	repo      *repository.CategoryRepository
	products  *repository.ProductRepository
	publisher *events.Publisher
	presenter *Presenter
	pager     Pager
	logger    *logrus.Entry
}

func NewCategoryHandler(
	repo *repository.CategoryRepository,
	products *repository.ProductRepository,
	publisher *events.Publisher,
	presenter *Presenter,
	pager Pager,
	logger *logrus.Logger,
) *CategoryHandler {
	return &CategoryHandler{
		repo:      repo,
		products:  products,
		publisher: publisher,
		presenter: presenter,
		pager:     pager,
		logger:    logger.WithField("component", "handlers.categories"),
	}
}

// forest loads the tree snapshot; views degrade to flat attributes without it.
func (h *CategoryHandler) forest(c *gin.Context) *hierarchy.Tree {
	tree, err := h.repo.Forest(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load category tree")
		return nil
	}
	return tree
}

func (h *CategoryHandler) publish(c *gin.Context, eventType string, category *models.Category, force bool) {
	event := events.NewCategoryEvent(eventType, category, actorFrom(c))
	event.Force = force
	if err := h.publisher.PublishCategory(c.Request.Context(), event); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"event":       eventType,
			"category_id": category.ID,
		}).Warn("Failed to publish category event")
	}
}

func (h *CategoryHandler) categoryID(c *gin.Context) (uuid.UUID, bool) {
	return parseID(c, "id", categoryNotFound)
}

// ListCategories returns a filtered page of categories
// GET /api/admin/categories
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	page, limit := h.pager.Parse(c)
	filters := models.CategoryFilters{
		Status:   models.CategoryStatus(c.Query("status")),
		Featured: queryBool(c, "featured"),
		Root:     queryBool(c, "root"),
		Search:   c.Query("search"),
		Trashed:  models.ParseTrashed(c.Query("trashed")),
		Page:     page,
		Limit:    limit,
	}
	if parent := c.Query("parent_id"); parent != "" {
		parentID, err := uuid.Parse(parent)
		if err != nil {
			_ = c.Error(middleware.NewFieldError("parent_id", "The parent id field must be a valid UUID."))
			return
		}
		filters.ParentID = &parentID
	}

	categories, total, err := h.repo.List(c.Request.Context(), filters)
	if err != nil {
		repoError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Categories retrieved successfully.", gin.H{
		"categories": h.presenter.Categories(categories, h.forest(c)),
		"pagination": models.NewPaginationInfo(page, limit, total),
	})
}

// GetCategory returns one category; trashed=with|only reaches trashed rows
// GET /api/admin/categories/:id
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	category, err := h.repo.Find(c.Request.Context(), id, models.ParseTrashed(c.Query("trashed")))
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Category retrieved successfully.", gin.H{
		"category": h.presenter.Category(category, h.forest(c)),
	})
}

// CreateCategory creates a category with a unique slug
// POST /api/admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category := req.ToCategory()
	if user := middleware.CurrentUser(c); user != nil {
		category.UserID = &user.ID
	}
	if err := h.repo.Create(c.Request.Context(), category); err != nil {
		repoError(c, err)
		return
	}

	h.publish(c, events.CategoryCreated, category, false)
	response.Success(c, http.StatusCreated, "Category created successfully.", gin.H{
		"category": h.presenter.Category(category, h.forest(c)),
	})
}

// UpdateCategory applies a partial update, including reparenting
// PUT /api/admin/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	var req models.UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.repo.Update(c.Request.Context(), id, &req)
	if err != nil {
		repoError(c, err)
		return
	}

	h.publish(c, events.CategoryUpdated, category, false)
	response.Success(c, http.StatusOK, "Category updated successfully.", gin.H{
		"category": h.presenter.Category(category, h.forest(c)),
	})
}

// DeleteCategory moves a category to the trash, or with force=true detaches
// its products and removes it permanently
// DELETE /api/admin/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	ctx := c.Request.Context()

	if !force {
		category, err := h.repo.GetByID(ctx, id)
		if err != nil {
			repoError(c, err)
			return
		}
		if err := h.repo.Delete(ctx, id); err != nil {
			repoError(c, err)
			return
		}
		h.publish(c, events.CategoryDeleted, category, false)
		response.Success(c, http.StatusOK, "Category moved to trash.", gin.H{
			"id":        id,
			"lifecycle": h.lifecycle(c, id, models.LifecycleTrashed),
		})
		return
	}

	category, err := h.repo.Find(ctx, id, models.WithTrashed)
	if err != nil {
		repoError(c, err)
		return
	}
	detached, err := h.repo.ForceDelete(ctx, id)
	if err != nil {
		repoError(c, err)
		return
	}
	h.publish(c, events.CategoryDeleted, category, true)
	response.Success(c, http.StatusOK, "Category permanently deleted.", gin.H{
		"id":                id,
		"lifecycle":         h.lifecycle(c, id, models.LifecycleAbsent),
		"detached_products": detached,
	})
}

// lifecycle reads the stored state of id after a write, falling back to expected
func (h *CategoryHandler) lifecycle(c *gin.Context, id uuid.UUID, expected models.Lifecycle) models.Lifecycle {
	state, err := h.repo.State(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("category_id", id).Warn("Failed to read category lifecycle")
		return expected
	}
	return state
}

// RestoreCategory brings a trashed category back
// POST /api/admin/categories/:id/restore
func (h *CategoryHandler) RestoreCategory(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	category, err := h.repo.Restore(c.Request.Context(), id)
	if err != nil {
		repoError(c, err)
		return
	}
	h.publish(c, events.CategoryRestored, category, false)
	response.Success(c, http.StatusOK, "Category restored successfully.", gin.H{
		"category": h.presenter.Category(category, h.forest(c)),
	})
}

type updateCategoryStatusRequest struct {
	Status models.CategoryStatus `json:"status" binding:"required,oneof=active inactive archived"`
}

// UpdateCategoryStatus changes the status of a category
// PATCH /api/admin/categories/:id/status
func (h *CategoryHandler) UpdateCategoryStatus(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	var req updateCategoryStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		repoError(c, err)
		return
	}
	category, err := h.repo.GetByID(ctx, id)
	if err != nil {
		repoError(c, err)
		return
	}
	h.publish(c, events.CategoryUpdated, category, false)
	response.Success(c, http.StatusOK, "Category status updated successfully.", gin.H{
		"category": h.presenter.Category(category, h.forest(c)),
	})
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type parentOption struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	FullName string    `json:"full_name"`
	Depth    int       `json:"depth"`
}

// GetOptions lists the selectable statuses, layouts and parents
// GET /api/admin/categories/options
func (h *CategoryHandler) GetOptions(c *gin.Context) {
	tree, err := h.repo.Forest(c.Request.Context())
	if err != nil {
		repoError(c, err)
		return
	}

	statuses := make([]option, 0, len(models.CategoryStatusOptions))
	for _, status := range []models.CategoryStatus{models.CategoryStatusActive, models.CategoryStatusInactive, models.CategoryStatusArchived} {
		statuses = append(statuses, option{Value: string(status), Label: statusLabel(status), Color: statusColor(status)})
	}
	layouts := make([]option, 0, len(models.DisplayLayoutOptions))
	for _, layout := range []models.DisplayLayout{models.LayoutGrid, models.LayoutList, models.LayoutCarousel} {
		layouts = append(layouts, option{Value: string(layout), Label: models.DisplayLayoutOptions[layout]})
	}
	parents := make([]parentOption, 0, tree.Len())
	tree.Walk(func(n hierarchy.Node, depth int) {
		fullName, _ := tree.FullName(n.ID)
		parents = append(parents, parentOption{ID: n.ID, Name: n.Name, FullName: fullName, Depth: depth})
	})

	response.Success(c, http.StatusOK, "Category options retrieved successfully.", gin.H{
		"statuses":        statuses,
		"display_layouts": layouts,
		"parents":         parents,
	})
}

// GetCategoryTree returns the nested forest of live categories
// GET /api/admin/categories/tree
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	tree, err := h.repo.Forest(c.Request.Context())
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Category tree retrieved successfully.", gin.H{
		"tree": h.presenter.Tree(tree),
	})
}

// GetAncestors returns the ancestors of a category, root first
// GET /api/admin/categories/:id/ancestors
func (h *CategoryHandler) GetAncestors(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	ancestors, err := h.repo.Ancestors(c.Request.Context(), id)
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Ancestors retrieved successfully.", gin.H{
		"ancestors": h.presenter.Categories(ancestors, nil),
	})
}

// GetBreadcrumb returns the ancestors followed by the category itself
// GET /api/admin/categories/:id/breadcrumb
func (h *CategoryHandler) GetBreadcrumb(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	tree, err := h.repo.Forest(c.Request.Context())
	if err != nil {
		repoError(c, err)
		return
	}
	crumbs, err := tree.Breadcrumb(id)
	if err != nil {
		if errors.Is(err, hierarchy.ErrNodeNotFound) {
			err = repository.ErrCategoryNotFound
		}
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Breadcrumb retrieved successfully.", gin.H{
		"breadcrumb": h.presenter.Crumbs(crumbs),
	})
}

// GetChildren returns the direct children of a category
// GET /api/admin/categories/:id/children
func (h *CategoryHandler) GetChildren(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.GetByID(ctx, id); err != nil {
		repoError(c, err)
		return
	}
	children, err := h.repo.Children(ctx, id)
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Children retrieved successfully.", gin.H{
		"children": h.presenter.Categories(children, h.forest(c)),
	})
}

// GetDescendants returns every category below id in depth-first order
// GET /api/admin/categories/:id/descendants
func (h *CategoryHandler) GetDescendants(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ids, err := h.repo.DescendantIDs(ctx, id)
	if err != nil {
		repoError(c, err)
		return
	}
	descendants, err := h.repo.FindMany(ctx, ids)
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Descendants retrieved successfully.", gin.H{
		"descendants": h.presenter.Categories(descendants, h.forest(c)),
	})
}

// GetCategoryProducts lists the products of a category, optionally including
// every subcategory
// GET /api/admin/categories/:id/products
func (h *CategoryHandler) GetCategoryProducts(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.GetByID(ctx, id); err != nil {
		repoError(c, err)
		return
	}

	ids := []uuid.UUID{id}
	if include := queryBool(c, "include_subcategories"); include != nil && *include {
		subtree, err := h.repo.SubtreeIDs(ctx, id)
		if err != nil {
			repoError(c, err)
			return
		}
		ids = subtree
	}

	page, limit := h.pager.Parse(c)
	products, total, err := h.products.List(ctx, models.ProductFilters{
		CategoryIDs: ids,
		Status:      models.ProductStatus(c.Query("status")),
		Search:      c.Query("search"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		repoError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	response.Success(c, http.StatusOK, "Products retrieved successfully.", gin.H{
		"products":     products,
		"category_ids": ids,
		"pagination":   models.NewPaginationInfo(page, limit, total),
	})
}

// SyncProductsCount recomputes products_count of one category
// POST /api/admin/categories/:id/sync-products-count
func (h *CategoryHandler) SyncProductsCount(c *gin.Context) {
	id, ok := h.categoryID(c)
	if !ok {
		return
	}
	count, err := h.repo.SyncProductsCount(c.Request.Context(), id)
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Products count synchronized.", gin.H{
		"id":             id,
		"products_count": count,
	})
}

// SyncAllProductsCounts recomputes products_count of every category
// POST /api/admin/categories/sync-products-count
func (h *CategoryHandler) SyncAllProductsCounts(c *gin.Context) {
	updated, err := h.repo.SyncAllProductsCounts(c.Request.Context())
	if err != nil {
		repoError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Products counts synchronized.", gin.H{"updated": updated})
}

// bulkItemError is the message reported for one failed item
func bulkItemError(err error) string {
	var custom *middleware.CustomError
	if !errors.As(mapRepoError(err), &custom) {
		return middleware.MessageInternal
	}
	for _, messages := range custom.Fields {
		if len(messages) > 0 {
			return messages[0]
		}
	}
	return custom.Message
}

// BulkCreateCategories creates each category independently
// POST /api/admin/categories/bulk
func (h *CategoryHandler) BulkCreateCategories(c *gin.Context) {
	var req models.BulkCreateCategoriesRequest
	if !bindJSON(c, &req) {
		return
	}

	categories := make([]*models.Category, len(req.Categories))
	for i := range req.Categories {
		categories[i] = req.Categories[i].ToCategory()
		if user := middleware.CurrentUser(c); user != nil {
			categories[i].UserID = &user.ID
		}
	}

	result := h.repo.BulkCreate(c.Request.Context(), categories)

	items := make([]models.BulkCreateResultItem, len(categories))
	for i := range categories {
		items[i] = models.BulkCreateResultItem{Index: i, ExternalID: req.Categories[i].ExternalID, Success: true, Category: categories[i]}
	}
	for _, failure := range result.Errors {
		items[failure.Index].Success = false
		items[failure.Index].Category = nil
		items[failure.Index].Error = bulkItemError(failure.Err)
		if !isExpected(failure.Err) {
			h.logger.WithError(failure.Err).WithField("index", failure.Index).Error("Bulk category create failed")
		}
	}
	for _, category := range result.Created {
		h.publish(c, events.CategoryCreated, category, false)
	}

	data := gin.H{
		"results":       items,
		"total_count":   result.Total,
		"success_count": result.Success,
		"failed_count":  result.Failed,
	}
	switch {
	case result.Success == 0:
		response.Error(c, http.StatusUnprocessableEntity, "No categories were created.", data)
	case result.Failed > 0:
		response.Success(c, http.StatusMultiStatus, "Some categories could not be created.", data)
	default:
		response.Success(c, http.StatusCreated, "Categories created successfully.", data)
	}
}

// isExpected reports whether err is a business failure rather than a fault
func isExpected(err error) bool {
	var custom *middleware.CustomError
	return errors.As(mapRepoError(err), &custom) && custom.Kind != middleware.KindInternal
}

func respondBulk(c *gin.Context, result *models.BulkResult, done string) {
	switch {
	case result.AffectedCount == 0:
		response.Error(c, http.StatusNotFound, "No categories were "+done+".", result)
	case len(result.FailedIDs) > 0:
		response.Success(c, http.StatusMultiStatus, "Some categories could not be "+done+".", result)
	default:
		response.Success(c, http.StatusOK, "Categories "+done+" successfully.", result)
	}
}

// BulkDeleteCategories trashes, or with force removes, the given categories
// POST /api/admin/categories/bulk-delete
func (h *CategoryHandler) BulkDeleteCategories(c *gin.Context) {
	var req models.BulkIDsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.repo.BulkDelete(c.Request.Context(), req.IDs, req.Force)
	if err != nil {
		repoError(c, err)
		return
	}
	if req.Force {
		respondBulk(c, result, "permanently deleted")
		return
	}
	respondBulk(c, result, "moved to trash")
}

// BulkRestoreCategories restores the given trashed categories
// POST /api/admin/categories/bulk-restore
func (h *CategoryHandler) BulkRestoreCategories(c *gin.Context) {
	var req models.BulkIDsRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.repo.BulkRestore(c.Request.Context(), req.IDs)
	if err != nil {
		repoError(c, err)
		return
	}
	respondBulk(c, result, "restored")
}

// BulkUpdateCategoryStatus sets one status on many categories
// PATCH /api/admin/categories/bulk-status
func (h *CategoryHandler) BulkUpdateCategoryStatus(c *gin.Context) {
	var req models.BulkUpdateCategoryStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.repo.BulkUpdateStatus(c.Request.Context(), req.IDs, req.Status)
	if err != nil {
		repoError(c, err)
		return
	}
	respondBulk(c, result, "updated")
}
