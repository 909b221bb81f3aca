package events

import (
	"context"
	"testing"

	"catalog-admin-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewProductEventCollectsDistinctCategories(t *testing.T) {
	current := uuid.New()
	previous := uuid.New()
	product := &models.Product{ID: uuid.New(), Name: "Lamp", Slug: "lamp", CategoryID: &current, Status: models.ProductStatusActive}

	event := NewProductEvent(ProductUpdated, product, Actor{}, &previous, &current, nil)

	assert.Equal(t, ProductUpdated, event.GetSubject())
	assert.Equal(t, ProductStream, event.GetStream())
	assert.Equal(t, product.ID.String(), event.SourceID)
	assert.Equal(t, current.String(), event.CategoryID)
	assert.Equal(t, []string{current.String(), previous.String()}, event.CategoryIDs)
}

func TestNewCategoryEvent(t *testing.T) {
	parent := uuid.New()
	user := &models.User{ID: uuid.New(), Name: "Admin", Email: "admin@example.com"}
	category := &models.Category{ID: uuid.New(), Name: "Books", Slug: "books", ParentID: &parent, Status: models.CategoryStatusActive}

	event := NewCategoryEvent(CategoryCreated, category, NewActor(user, "10.0.0.1", "test"))

	assert.Equal(t, CategoryStream, event.GetStream())
	assert.Equal(t, parent.String(), event.ParentID)
	assert.Equal(t, "active", event.Status)
	assert.Equal(t, user.Email, event.ActorEmail)
	assert.Equal(t, "10.0.0.1", event.ClientIP)
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	category := &models.Category{ID: uuid.New(), Name: "Books"}

	assert.NoError(t, p.PublishCategory(context.Background(), NewCategoryEvent(CategoryDeleted, category, Actor{})))
	assert.False(t, p.IsConnected())
	p.Close()
}
