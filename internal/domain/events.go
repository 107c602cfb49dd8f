package domain

import "time"

// BookingEvent is the envelope published to Kafka for booking lifecycle
// changes. Downstream consumers (notification service, analytics) key off
// EventType.
type BookingEvent struct {
	EventID   string           `json:"event_id"`
	EventType BookingEventType `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`

	BookingID string        `json:"booking_id"`
	EventRef  string        `json:"event_ref"` // the booked event's ID
	UserID    string        `json:"user_id"`
	Status    BookingStatus `json:"status"`

	// Optional payload fields
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty"`
	PromotedAt         *time.Time `json:"promoted_at,omitempty"`
	CertificateID      string     `json:"certificate_id,omitempty"`
	EmailSent          bool       `json:"email_sent,omitempty"`
}

// NewBookingEvent builds an event envelope from a booking.
func NewBookingEvent(eventType BookingEventType, booking *Booking, eventID string) *BookingEvent {
	return &BookingEvent{
		EventID:            eventID,
		EventType:          eventType,
		Timestamp:          time.Now(),
		BookingID:          booking.ID,
		EventRef:           booking.EventID,
		UserID:             booking.UserID,
		Status:             booking.Status,
		CancellationReason: booking.CancellationReason,
		CheckedInAt:        booking.CheckedInAt,
		PromotedAt:         booking.PromotedAt,
	}
}

// Key returns the Kafka partition key. Events for the same booked event
// stay ordered on one partition.
func (e *BookingEvent) Key() string {
	return e.EventRef
}
