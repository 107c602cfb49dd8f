package repository

import (
	"context"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
)

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	// CreateBooking inserts a booking and assigns its status inside a single
	// transaction: confirmed while capacity remains, waitlist when full and
	// the event allows it, pending when the event requires approval.
	// The assigned status is written back to booking.Status.
	CreateBooking(ctx context.Context, booking *domain.Booking, event *domain.Event) error

	// GetByID retrieves a booking by its ID
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetActiveByEventAndUser retrieves the caller's non-cancelled booking
	// for an event, or ErrBookingNotFound
	GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Booking, error)

	// GetByIdempotencyKey retrieves a booking by idempotency key; (nil, nil)
	// when no record exists
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)

	// GetByUserID retrieves a user's bookings, newest first
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error)

	// CountByUserID counts a user's bookings for pagination
	CountByUserID(ctx context.Context, userID string) (int64, error)

	// ListByEvent retrieves all bookings for an event ordered by booked_at
	ListByEvent(ctx context.Context, eventID string) ([]*domain.Booking, error)

	// CountByStatus returns confirmed and waitlist counts for an event
	CountByStatus(ctx context.Context, eventID string) (confirmed, waitlisted int, err error)

	// CancelWithPromotion cancels a booking and, when the cancelled booking
	// held a confirmed slot, promotes the earliest waitlist booking in the
	// same transaction. Returns the promoted booking, or nil.
	CancelWithPromotion(ctx context.Context, id, reason string) (*domain.Booking, error)

	// PromoteWaitlist promotes waitlist bookings FIFO while capacity remains,
	// up to limit. Returns the promoted bookings.
	PromoteWaitlist(ctx context.Context, eventID string, limit int) ([]*domain.Booking, error)

	// EventIDsWithWaitlist returns IDs of events that currently hold
	// waitlist bookings
	EventIDsWithWaitlist(ctx context.Context, limit int) ([]string, error)

	// UpdateStatusAdmin forces a status transition (admin correction)
	UpdateStatusAdmin(ctx context.Context, id string, status domain.BookingStatus, reason string) error

	// CheckIn marks a confirmed booking attended; guarded against double
	// check-in at the SQL level
	CheckIn(ctx context.Context, id string, at time.Time) error

	// RecordFeedback stamps feedback submission on a booking
	RecordFeedback(ctx context.Context, id string, at time.Time) error

	// NoShowCandidates returns confirmed, never-checked-in bookings whose
	// event ended before the cutoff
	NoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error)

	// MarkNoShow transitions a confirmed booking to no_show
	MarkNoShow(ctx context.Context, id string) error

	// CertificateCandidates returns attended bookings awaiting certificate
	// issue on events with auto-generation enabled, honoring the per-event
	// feedback gate
	CertificateCandidates(ctx context.Context, limit int) ([]*domain.Booking, error)

	// DeleteCancelled deletes a booking only when it is cancelled
	DeleteCancelled(ctx context.Context, id string) error
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// GetByID retrieves an event by its ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// QRCodeRepository defines the interface for QR artifact data access
type QRCodeRepository interface {
	// Replace deactivates any existing artifact for the event and inserts
	// the new one in a single transaction
	Replace(ctx context.Context, qr *domain.QRCode) error

	// GetActiveByEvent retrieves the event's active artifact
	GetActiveByEvent(ctx context.Context, eventID string) (*domain.QRCode, error)

	// GetActiveByToken retrieves an active artifact by scan token
	GetActiveByToken(ctx context.Context, token string) (*domain.QRCode, error)

	// Deactivate retires the event's active artifact
	Deactivate(ctx context.Context, eventID string) error
}

// CertificateRepository defines the interface for certificate data access
type CertificateRepository interface {
	// Issue inserts the certificate and flags the booking's
	// certificate_generated / certificate_email_sent columns in a single
	// transaction
	Issue(ctx context.Context, cert *domain.Certificate, emailSent bool) error
}

// ScanGuard suppresses duplicate attendance scans of the same payload
// within a short window
type ScanGuard interface {
	// Acquire returns true when the payload has not been seen inside the
	// suppression window; false means the scan must be ignored
	Acquire(ctx context.Context, payload string, window time.Duration) (bool, error)
}

// AvailabilityCache caches per-event availability snapshots under a short TTL
type AvailabilityCache interface {
	// Get returns the cached snapshot; the bool reports a hit
	Get(ctx context.Context, eventID string) (*domain.Availability, bool, error)

	// Set stores a snapshot
	Set(ctx context.Context, eventID string, a *domain.Availability) error

	// Invalidate drops the snapshot after a booking mutation
	Invalidate(ctx context.Context, eventID string) error
}
