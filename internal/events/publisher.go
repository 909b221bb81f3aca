package events

import (
	"context"
	"time"

	"catalog-admin-service/internal/models"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	CategoryStream = "CATEGORY_EVENTS"
	ProductStream  = "PRODUCT_EVENTS"
)

// Category event types
const (
	CategoryCreated  = "category.created"
	CategoryUpdated  = "category.updated"
	CategoryDeleted  = "category.deleted"
	CategoryRestored = "category.restored"
)

// Product event types
const (
	ProductCreated  = "product.created"
	ProductUpdated  = "product.updated"
	ProductDeleted  = "product.deleted"
	ProductRestored = "product.restored"
)

// Actor identifies who triggered an event
type Actor struct {
	ActorID    string `json:"actorId,omitempty"`
	ActorName  string `json:"actorName,omitempty"`
	ActorEmail string `json:"actorEmail,omitempty"`
	ClientIP   string `json:"clientIp,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
}

// NewActor describes user acting from the given client
func NewActor(user *models.User, clientIP, userAgent string) Actor {
	actor := Actor{ClientIP: clientIP, UserAgent: userAgent}
	if user != nil {
		actor.ActorID = user.ID.String()
		actor.ActorName = user.Name
		actor.ActorEmail = user.Email
	}
	return actor
}

// CategoryEvent represents a category-related event
type CategoryEvent struct {
	events.BaseEvent
	Actor
	CategoryID   string                 `json:"categoryId"`
	CategoryName string                 `json:"categoryName"`
	ParentID     string                 `json:"parentId,omitempty"`
	Slug         string                 `json:"slug,omitempty"`
	Status       string                 `json:"status,omitempty"`
	Force        bool                   `json:"force,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (e *CategoryEvent) GetSubject() string {
	return e.EventType
}

func (e *CategoryEvent) GetStream() string {
	return CategoryStream
}

// ProductEvent represents a product-related event. CategoryIDs lists every
// category whose product count may have changed.
type ProductEvent struct {
	events.BaseEvent
	Actor
	ProductID   string   `json:"productId"`
	Name        string   `json:"name,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Status      string   `json:"status,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	CategoryIDs []string `json:"categoryIds,omitempty"`
	Force       bool     `json:"force,omitempty"`
}

func (e *ProductEvent) GetSubject() string {
	return e.EventType
}

func (e *ProductEvent) GetStream() string {
	return ProductStream
}

// Publisher wraps the shared events publisher for catalog events.
// A nil *Publisher drops every event.
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher connects to NATS and ensures the catalog streams exist
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "catalog-admin-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := publisher.EnsureStream(ctx, CategoryStream, []string{"category.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure CATEGORY_EVENTS stream")
	}
	if err := publisher.EnsureStream(ctx, ProductStream, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure PRODUCT_EVENTS stream")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "events.publisher"),
	}, nil
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// NewCategoryEvent builds the event for category
func NewCategoryEvent(eventType string, category *models.Category, actor Actor) *CategoryEvent {
	return &CategoryEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			SourceID:  category.ID.String(), // Set sourceID to category UUID for deduplication
			Timestamp: time.Now().UTC(),
		},
		Actor:        actor,
		CategoryID:   category.ID.String(),
		CategoryName: category.Name,
		ParentID:     uuidString(category.ParentID),
		Slug:         category.Slug,
		Status:       string(category.Status),
	}
}

// NewProductEvent builds the event for product. The product's current
// category is always included in CategoryIDs.
func NewProductEvent(eventType string, product *models.Product, actor Actor, affected ...*uuid.UUID) *ProductEvent {
	seen := map[uuid.UUID]bool{}
	var categoryIDs []string
	for _, id := range append([]*uuid.UUID{product.CategoryID}, affected...) {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		categoryIDs = append(categoryIDs, id.String())
	}

	return &ProductEvent{
		BaseEvent: events.BaseEvent{
			EventType: eventType,
			SourceID:  product.ID.String(),
			Timestamp: time.Now().UTC(),
		},
		Actor:       actor,
		ProductID:   product.ID.String(),
		Name:        product.Name,
		Slug:        product.Slug,
		Status:      string(product.Status),
		CategoryID:  uuidString(product.CategoryID),
		CategoryIDs: categoryIDs,
	}
}

// PublishCategory publishes a category event
func (p *Publisher) PublishCategory(ctx context.Context, event *CategoryEvent) error {
	if p == nil {
		return nil
	}
	return p.publisher.Publish(ctx, event)
}

// PublishProduct publishes a product event
func (p *Publisher) PublishProduct(ctx context.Context, event *ProductEvent) error {
	if p == nil {
		return nil
	}
	return p.publisher.Publish(ctx, event)
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p != nil && p.publisher.IsConnected()
}

// Close closes the publisher connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.publisher.Close()
}
