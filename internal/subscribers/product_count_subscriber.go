package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"catalog-admin-service/internal/events"
	"catalog-admin-service/internal/repository"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// CountSyncer recomputes the live product count of a category
type CountSyncer interface {
	SyncProductsCount(ctx context.Context, id uuid.UUID) (int, error)
}

// ProductCountSubscriber keeps categories.products_count in step with product
// events published by this or any other catalog writer.
type ProductCountSubscriber struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	counts       CountSyncer
	consumerName string
	logger       *logrus.Entry
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewProductCountSubscriber connects to NATS and prepares the JetStream context
func NewProductCountSubscriber(natsURL string, counts CountSyncer, logger *logrus.Logger) (*ProductCountSubscriber, error) {
	entry := logger.WithField("component", "product-count-subscriber")

	nc, err := nats.Connect(natsURL,
		nats.Name("catalog-admin-service-product-counts"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("Disconnected from NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	hostname, _ := os.Hostname()
	return newProductCountSubscriber(counts, entry, fmt.Sprintf("catalog-product-counts-%s", hostname), nc, js), nil
}

func newProductCountSubscriber(counts CountSyncer, logger *logrus.Entry, consumerName string, nc *nats.Conn, js jetstream.JetStream) *ProductCountSubscriber {
	return &ProductCountSubscriber{
		nc:           nc,
		js:           js,
		counts:       counts,
		consumerName: consumerName,
		logger:       logger,
	}
}

// Start creates the durable consumer and consumes product events in the background
func (s *ProductCountSubscriber) Start(ctx context.Context) error {
	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      events.ProductStream,
		Subjects:  []string{"product.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Could not ensure PRODUCT_EVENTS stream")
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, events.ProductStream, jetstream.ConsumerConfig{
		Durable:       s.consumerName,
		FilterSubject: "product.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create product events consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to get product messages iterator: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.consume(ctx, msgs)

	s.logger.WithField("consumer", s.consumerName).Info("Product count subscriber started")
	return nil
}

func (s *ProductCountSubscriber) consume(ctx context.Context, msgs jetstream.MessagesContext) {
	defer close(s.done)
	go func() {
		<-ctx.Done()
		msgs.Stop()
	}()

	for {
		msg, err := msgs.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("Error getting next product message")
			time.Sleep(time.Second)
			continue
		}

		if err := s.HandleMessage(ctx, msg.Data()); err != nil {
			s.logger.WithError(err).WithField("subject", msg.Subject()).Warn("Failed to handle product event")
			_ = msg.Nak()
			continue
		}
		_ = msg.Ack()
	}
}

// HandleMessage resyncs the counters of every category named by a product event.
// Categories that no longer exist are skipped.
func (s *ProductCountSubscriber) HandleMessage(ctx context.Context, data []byte) error {
	var event events.ProductEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// Malformed payloads are acknowledged, redelivery cannot fix them
		s.logger.WithError(err).Warn("Ignoring undecodable product event")
		return nil
	}

	ids := append([]string{}, event.CategoryIDs...)
	if event.CategoryID != "" {
		ids = append(ids, event.CategoryID)
	}

	seen := map[uuid.UUID]bool{}
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true

		count, err := s.counts.SyncProductsCount(ctx, id)
		if errors.Is(err, repository.ErrCategoryNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to sync products count for %s: %w", id, err)
		}
		s.logger.WithFields(logrus.Fields{
			"event_type":     event.EventType,
			"category_id":    id,
			"products_count": count,
		}).Debug("Synced category products count")
	}
	return nil
}

// Stop stops consuming and closes the NATS connection
func (s *ProductCountSubscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.nc != nil {
		s.nc.Close()
	}
	s.logger.Info("Product count subscriber stopped")
}
