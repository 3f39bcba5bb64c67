// Package events publishes catalog changes to RabbitMQ and consumes them to keep the
// search index current.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"property-search/internal/common/logger"
	"property-search/internal/common/metrics"
	"property-search/internal/models"
)

const (
	ExchangeKind           = "topic"
	RoutingPropertyCreated = "property.created"
)

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection owns the broker connection and one channel.
type Connection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

func Dial(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Connection{conn: conn, Channel: ch}, nil
}

// IsClosed backs the readiness probe.
func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

func (c *Connection) Close() error {
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	return c.conn.Close()
}

// PropertyEvent is the message body on the properties exchange.
type PropertyEvent struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurredAt"`
	Property   models.Property `json:"property"`
}

type Publisher struct {
	ch       Channel
	exchange string
	logger   logger.Logger
}

// NewPublisher declares the durable topic exchange it publishes to.
func NewPublisher(ch Channel, exchange string, log logger.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   log.WithFields(map[string]interface{}{"component": "events", "exchange": exchange}),
	}, nil
}

func (p *Publisher) PublishPropertyCreated(ctx context.Context, prop models.Property) error {
	body, err := json.Marshal(PropertyEvent{
		Event:      RoutingPropertyCreated,
		OccurredAt: time.Now().UTC(),
		Property:   prop,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingPropertyCreated, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues(RoutingPropertyCreated, "error").Inc()
		return fmt.Errorf("publish %s: %w", RoutingPropertyCreated, err)
	}
	metrics.EventsPublished.WithLabelValues(RoutingPropertyCreated, "ok").Inc()
	p.logger.Debug("event published", map[string]interface{}{"propertyId": prop.ID})
	return nil
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishPropertyCreated(context.Context, models.Property) error { return nil }

type PropertyIndexer interface {
	IndexProperty(ctx context.Context, p models.Property) error
}

// SearchInvalidator drops cached search results once the index has changed.
type SearchInvalidator interface {
	InvalidateSearches(ctx context.Context) error
}

type Consumer struct {
	ch          Channel
	exchange    string
	queue       string
	indexer     PropertyIndexer
	invalidator SearchInvalidator
	prefetch    int
	logger      logger.Logger
}

type ConsumerOption func(*Consumer)

// WithInvalidator clears cached searches after each successfully indexed event.
func WithInvalidator(inv SearchInvalidator) ConsumerOption {
	return func(c *Consumer) { c.invalidator = inv }
}

func NewConsumer(ch Channel, exchange, queue string, indexer PropertyIndexer, log logger.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		ch:       ch,
		exchange: exchange,
		queue:    queue,
		indexer:  indexer,
		prefetch: 10,
		logger:   log.WithFields(map[string]interface{}{"component": "events", "queue": queue}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run binds the queue and indexes deliveries until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ch.ExchangeDeclare(c.exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %q: %w", c.exchange, err)
	}
	if _, err := c.ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", c.queue, err)
	}
	if err := c.ch.QueueBind(c.queue, RoutingPropertyCreated, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q: %w", c.queue, err)
	}
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(c.queue, "property-indexer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", c.queue, err)
	}

	c.logger.Info("consumer started", nil)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped", nil)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %q closed", c.queue)
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks indexed events, drops malformed ones and requeues a failed event once.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var evt PropertyEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.logger.Error("malformed event dropped", map[string]interface{}{"error": err, "messageId": d.MessageId})
		_ = d.Nack(false, false)
		return
	}

	if err := c.indexer.IndexProperty(ctx, evt.Property); err != nil {
		requeue := !d.Redelivered
		c.logger.Warn("indexing failed", map[string]interface{}{
			"error":      err,
			"propertyId": evt.Property.ID,
			"requeue":    requeue,
		})
		_ = d.Nack(false, requeue)
		return
	}

	// Cached searches may predate this document; drop them only now that it is searchable.
	if c.invalidator != nil {
		if err := c.invalidator.InvalidateSearches(ctx); err != nil {
			c.logger.Warn("search cache invalidation failed", map[string]interface{}{
				"error":      err,
				"propertyId": evt.Property.ID,
			})
		}
	}
	_ = d.Ack(false)
}
