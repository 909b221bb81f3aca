package handlers

import (
	"errors"
	"strconv"
	"strings"

	"catalog-admin-service/internal/events"
	"catalog-admin-service/internal/middleware"
	"catalog-admin-service/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Pager reads page and limit query parameters, clamping limit to Max
type Pager struct {
	Default int
	Max     int
}

func (p Pager) Parse(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(p.Default)))
	if err != nil || limit < 1 {
		limit = p.Default
	}
	if p.Max > 0 && limit > p.Max {
		limit = p.Max
	}
	return page, limit
}

// bindJSON binds the body into dst, recording a validation error on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(middleware.NewBindingError(err))
		return false
	}
	return true
}

// bind accepts JSON or form bodies, as the auth endpoints do.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBind(dst); err != nil {
		_ = c.Error(middleware.NewBindingError(err))
		return false
	}
	return true
}

// parseID reads a uuid path parameter. Malformed ids are reported as missing resources.
func parseID(c *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		_ = c.Error(middleware.NewNotFoundError(message))
		return uuid.Nil, false
	}
	return id, true
}

func queryBool(c *gin.Context, key string) *bool {
	value, ok := c.GetQuery(key)
	if !ok || value == "" {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &b
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func actorFrom(c *gin.Context) events.Actor {
	return events.NewActor(middleware.CurrentUser(c), c.ClientIP(), c.Request.UserAgent())
}

// repoError translates repository sentinels into rendered errors
func repoError(c *gin.Context, err error) {
	_ = c.Error(mapRepoError(err))
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCategoryNotFound):
		return middleware.NewNotFoundError("Category not found.")
	case errors.Is(err, repository.ErrProductNotFound):
		return middleware.NewNotFoundError("Product not found.")
	case errors.Is(err, repository.ErrUserNotFound):
		return middleware.NewNotFoundError("User not found.")
	case errors.Is(err, repository.ErrTokenNotFound):
		return middleware.NewNotFoundError("Token not found")
	case errors.Is(err, repository.ErrSlugConflict):
		return middleware.NewConflictError("A unique slug could not be assigned, please retry.")
	case errors.Is(err, repository.ErrSlugTaken):
		return middleware.NewFieldError("slug", "The slug has already been taken.")
	case errors.Is(err, repository.ErrCategoryCycle):
		return middleware.NewFieldError("parent_id", "A category cannot be moved under itself or one of its descendants.")
	case errors.Is(err, repository.ErrParentNotFound):
		return middleware.NewFieldError("parent_id", "The selected parent id is invalid.")
	case errors.Is(err, repository.ErrEmailTaken):
		return middleware.NewFieldError("email", "The email has already been taken.")
	case errors.Is(err, repository.ErrCPFCNPJTaken):
		return middleware.NewFieldError("cpf_cnpj", "The cpf cnpj has already been taken.")
	case errors.Is(err, repository.ErrSKUTaken):
		return middleware.NewFieldError("sku", "The sku has already been taken.")
	case errors.Is(err, repository.ErrBarcodeTaken):
		return middleware.NewFieldError("barcode", "The barcode has already been taken.")
	default:
		return middleware.NewInternalError(err)
	}
}
