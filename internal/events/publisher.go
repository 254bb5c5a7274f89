package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// TypeOrderPlaced is emitted once a checkout has committed
const TypeOrderPlaced = "order.placed"

// OrderPlacedEvent describes a completed checkout
type OrderPlacedEvent struct {
	Type          string               `json:"type"`
	OrderID       uuid.UUID            `json:"order_id"`
	CheckoutID    uuid.UUID            `json:"checkout_id"`
	CustomerID    uuid.UUID            `json:"customer_id"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Items         []OrderPlacedItem    `json:"items"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// OrderPlacedItem is one line of a placed order
type OrderPlacedItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// NewOrderPlacedEvent builds the event for a committed checkout
func NewOrderPlacedEvent(order *domain.Order, checkout *domain.Checkout) OrderPlacedEvent {
	event := OrderPlacedEvent{
		Type:          TypeOrderPlaced,
		OrderID:       order.ID,
		CheckoutID:    checkout.ID,
		CustomerID:    order.CustomerID,
		TotalPrice:    order.TotalPrice,
		PaymentMethod: checkout.PaymentMethod,
		OccurredAt:    checkout.CreatedAt,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderPlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return event
}

// Publisher emits domain events to downstream consumers
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by customer
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a KafkaPublisher for topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CustomerID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events; used when no brokers are configured
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlacedEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
