package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/kafka"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/retry"
	"github.com/google/uuid"
)

// EventPublisher defines the interface for publishing booking lifecycle events
type EventPublisher interface {
	// PublishBookingConfirmed publishes a booking confirmed event
	PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error

	// PublishBookingWaitlisted publishes a booking waitlisted event
	PublishBookingWaitlisted(ctx context.Context, booking *domain.Booking) error

	// PublishBookingPending publishes a booking pending-approval event
	PublishBookingPending(ctx context.Context, booking *domain.Booking) error

	// PublishBookingCancelled publishes a booking cancelled event
	PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error

	// PublishBookingPromoted publishes a waitlist promotion event
	PublishBookingPromoted(ctx context.Context, booking *domain.Booking) error

	// PublishBookingCheckedIn publishes an attendance check-in event
	PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error

	// PublishBookingNoShow publishes a no-show event
	PublishBookingNoShow(ctx context.Context, booking *domain.Booking) error

	// PublishCertificateIssued publishes a certificate issued event
	PublishCertificateIssued(ctx context.Context, booking *domain.Booking, cert *domain.Certificate) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka. Failed publishes
// land on the topic's dead letter queue after retries are exhausted.
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	dlq         retry.DLQPublisher
	retrier     *retry.Retrier
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "booking-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "booking-service"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "booking-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
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

	dlq := retry.NewKafkaDLQPublisher(
		producer,
		&retry.DLQConfig{TopicSuffix: ".dlq", Source: serviceName},
	)

	return &KafkaEventPublisher{
		producer: producer,
		dlq:      dlq,
		retrier: retry.New(&retry.Config{
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     1 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		}),
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishBookingConfirmed publishes a booking confirmed event
func (p *KafkaEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventConfirmed, booking, nil)
}

// PublishBookingWaitlisted publishes a booking waitlisted event
func (p *KafkaEventPublisher) PublishBookingWaitlisted(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventWaitlisted, booking, nil)
}

// PublishBookingPending publishes a booking pending-approval event
func (p *KafkaEventPublisher) PublishBookingPending(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventPending, booking, nil)
}

// PublishBookingCancelled publishes a booking cancelled event
func (p *KafkaEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventCancelled, booking, nil)
}

// PublishBookingPromoted publishes a waitlist promotion event
func (p *KafkaEventPublisher) PublishBookingPromoted(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventPromoted, booking, nil)
}

// PublishBookingCheckedIn publishes an attendance check-in event
func (p *KafkaEventPublisher) PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventCheckedIn, booking, nil)
}

// PublishBookingNoShow publishes a no-show event
func (p *KafkaEventPublisher) PublishBookingNoShow(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.BookingEventNoShow, booking, nil)
}

// PublishCertificateIssued publishes a certificate issued event
func (p *KafkaEventPublisher) PublishCertificateIssued(ctx context.Context, booking *domain.Booking, cert *domain.Certificate) error {
	return p.publishEvent(ctx, domain.CertificateEventIssued, booking, cert)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes a booking event to Kafka, routing to the DLQ when
// the broker rejects the record
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking, cert *domain.Certificate) error {
	eventID := uuid.New().String()
	event := domain.NewBookingEvent(eventType, booking, eventID)
	if cert != nil {
		event.CertificateID = cert.ID
		event.EmailSent = cert.EmailSent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     eventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	firstAttempt := time.Now()
	result := p.retrier.Do(ctx, func(ctx context.Context) error {
		return p.producer.Produce(ctx, msg)
	})
	if result.Err != nil {
		err := result.Err
		if result.LastError != nil {
			err = result.LastError
		}
		dlqErr := p.dlq.PublishToDLQ(ctx, &retry.DLQMessage{
			ID:             eventID,
			OriginalTopic:  p.topic,
			OriginalKey:    event.Key(),
			Payload:        value,
			Headers:        headers,
			Error:          err.Error(),
			Attempts:       result.Attempts,
			FirstAttemptAt: firstAttempt,
			LastAttemptAt:  time.Now(),
		})
		if dlqErr != nil {
			return fmt.Errorf("failed to publish %s event: %w (dlq: %v)", eventType, err, dlqErr)
		}
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishBookingConfirmed is a no-op
func (p *NoOpEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingWaitlisted is a no-op
func (p *NoOpEventPublisher) PublishBookingWaitlisted(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingPending is a no-op
func (p *NoOpEventPublisher) PublishBookingPending(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingCancelled is a no-op
func (p *NoOpEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingPromoted is a no-op
func (p *NoOpEventPublisher) PublishBookingPromoted(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingCheckedIn is a no-op
func (p *NoOpEventPublisher) PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishBookingNoShow is a no-op
func (p *NoOpEventPublisher) PublishBookingNoShow(ctx context.Context, booking *domain.Booking) error {
	return nil
}

// PublishCertificateIssued is a no-op
func (p *NoOpEventPublisher) PublishCertificateIssued(ctx context.Context, booking *domain.Booking, cert *domain.Certificate) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}

// Ensure implementations satisfy EventPublisher
var (
	_ EventPublisher = (*KafkaEventPublisher)(nil)
	_ EventPublisher = (*NoOpEventPublisher)(nil)
)
