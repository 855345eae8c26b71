package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-ticketing/internal/domain"
	"github.com/prohmpiriya/event-ticketing/pkg/kafka"
	"github.com/prohmpiriya/event-ticketing/pkg/telemetry"
)

// TypePaymentVerified is the event type header for settled payments
const TypePaymentVerified = "payment.verified"

// PaymentVerified is published once a verification commits a terminal outcome
type PaymentVerified struct {
	EventID       string               `json:"event_id"`
	Reference     string               `json:"reference"`
	Outcome       domain.Outcome       `json:"outcome"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	Gateway       domain.Gateway       `json:"gateway"`
	Event         string               `json:"event"`
	TicketType    domain.TicketType    `json:"ticket_type,omitempty"`
	TicketCount   int                  `json:"ticket_count"`
	Amount        string               `json:"amount"`
	Currency      string               `json:"currency"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewPaymentVerified builds the event from settled details
func NewPaymentVerified(d *domain.PaymentDetails, outcome domain.Outcome) *PaymentVerified {
	e := &PaymentVerified{
		EventID:       uuid.New().String(),
		Reference:     d.Payment.Reference,
		Outcome:       outcome,
		PaymentStatus: d.Payment.Status,
		Gateway:       d.Payment.Gateway,
		Event:         d.Payment.EventID,
		TicketCount:   len(d.Tickets),
		Amount:        d.Payment.Amount.StringFixed(2),
		Currency:      d.Payment.Currency,
		OccurredAt:    time.Now().UTC(),
	}
	if tt, err := d.TicketType(); err == nil {
		e.TicketType = tt
	}
	return e
}

// Publisher announces verification outcomes
type Publisher interface {
	PublishPaymentVerified(ctx context.Context, d *domain.PaymentDetails, outcome domain.Outcome) error
	Close() error
}

// producer is the part of *kafka.Producer the publisher needs
type producer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaPublisherConfig contains configuration for the Kafka publisher
type KafkaPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaPublisher implements Publisher using Kafka
type KafkaPublisher struct {
	producer    producer
	topic       string
	serviceName string
}

// NewKafkaPublisher connects a producer and returns a publisher on top of it
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ticketing-producer"
	}

	p, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaPublisher(p, cfg.Topic, cfg.ServiceName), nil
}

func newKafkaPublisher(p producer, topic, serviceName string) *KafkaPublisher {
	if topic == "" {
		topic = "payment-events"
	}
	if serviceName == "" {
		serviceName = "ticketing"
	}
	return &KafkaPublisher{producer: p, topic: topic, serviceName: serviceName}
}

// PublishPaymentVerified produces the event keyed by payment reference
func (p *KafkaPublisher) PublishPaymentVerified(ctx context.Context, d *domain.PaymentDetails, outcome domain.Outcome) error {
	event := NewPaymentVerified(d, outcome)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := telemetry.InjectHeaders(ctx)
	headers["event_type"] = TypePaymentVerified
	headers["event_id"] = event.EventID
	headers["source"] = p.serviceName
	headers["content_type"] = "application/json"

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Reference),
		Value:     value,
		Headers:   headers,
		Timestamp: event.OccurredAt,
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", TypePaymentVerified, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpPublisher drops every event
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

// PublishPaymentVerified is a no-op
func (NoOpPublisher) PublishPaymentVerified(ctx context.Context, d *domain.PaymentDetails, outcome domain.Outcome) error {
	return nil
}

// Close is a no-op
func (NoOpPublisher) Close() error {
	return nil
}
