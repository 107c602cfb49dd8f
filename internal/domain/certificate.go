package domain

import "time"

// Certificate records a certificate issued for an attended booking.
type Certificate struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	EmailSent bool      `json:"email_sent"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingEventType identifies booking lifecycle events published to Kafka.
type BookingEventType string

const (
	BookingEventConfirmed  BookingEventType = "booking.confirmed"
	BookingEventWaitlisted BookingEventType = "booking.waitlisted"
	BookingEventPending    BookingEventType = "booking.pending"
	BookingEventCancelled  BookingEventType = "booking.cancelled"
	BookingEventPromoted   BookingEventType = "booking.promoted"
	BookingEventCheckedIn  BookingEventType = "booking.checked_in"
	BookingEventNoShow     BookingEventType = "booking.no_show"
	CertificateEventIssued BookingEventType = "certificate.issued"
)
