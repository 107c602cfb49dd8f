package dto

import (
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
)

// CreateBookingRequest represents a booking submission
type CreateBookingRequest struct {
	EventID          string `json:"event_id" binding:"required"`
	Checkbox1Checked bool   `json:"confirmation_checkbox_1_checked"`
	Checkbox2Checked bool   `json:"confirmation_checkbox_2_checked"`
	IdempotencyKey   string `json:"idempotency_key,omitempty"`
}

// UpdateBookingRequest represents a user-driven booking mutation.
// The only user transition is a cancel, which requires a reason.
type UpdateBookingRequest struct {
	Status             string `json:"status" binding:"required"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                   string     `json:"id"`
	EventID              string     `json:"event_id"`
	UserID               string     `json:"user_id"`
	Status               string     `json:"status"`
	CancellationReason   string     `json:"cancellation_reason,omitempty"`
	CheckedIn            bool       `json:"checked_in"`
	CheckedInAt          *time.Time `json:"checked_in_at,omitempty"`
	CertificateGenerated bool       `json:"certificate_generated"`
	CertificateEmailSent bool       `json:"certificate_email_sent"`
	BookedAt             time.Time  `json:"booked_at"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	PromotedAt           *time.Time `json:"promoted_at,omitempty"`
}

// BookingCheckResponse is the payload of GET /bookings/check/:eventId
type BookingCheckResponse struct {
	Event        *EventResponse      `json:"event"`
	HasBooking   bool                `json:"has_booking"`
	Booking      *BookingResponse    `json:"booking,omitempty"`
	Availability domain.Availability `json:"availability"`
}

// EventResponse is the booking-relevant event view returned to clients
type EventResponse struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Location            string    `json:"location,omitempty"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	BookingEnabled      bool      `json:"booking_enabled"`
	BookingCapacity     *int      `json:"booking_capacity"`
	AllowWaitlist       bool      `json:"allow_waitlist"`
	Checkbox1Text       string    `json:"confirmation_checkbox_1_text,omitempty"`
	Checkbox1Required   bool      `json:"confirmation_checkbox_1_required"`
	Checkbox2Text       string    `json:"confirmation_checkbox_2_text,omitempty"`
	Checkbox2Required   bool      `json:"confirmation_checkbox_2_required"`
	QRAttendanceEnabled bool      `json:"qr_attendance_enabled"`
}

// SubmitFeedbackRequest records feedback for a booking
type SubmitFeedbackRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// FromDomainBooking converts a domain Booking to its API representation
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:                   b.ID,
		EventID:              b.EventID,
		UserID:               b.UserID,
		Status:               string(b.Status),
		CancellationReason:   b.CancellationReason,
		CheckedIn:            b.CheckedIn,
		CheckedInAt:          b.CheckedInAt,
		CertificateGenerated: b.CertificateGenerated,
		CertificateEmailSent: b.CertificateEmailSent,
		BookedAt:             b.BookedAt,
		CancelledAt:          b.CancelledAt,
		PromotedAt:           b.PromotedAt,
	}
}

// FromDomainEvent converts a domain Event to its API representation
func FromDomainEvent(e *domain.Event) *EventResponse {
	return &EventResponse{
		ID:                  e.ID,
		Title:               e.Title,
		Location:            e.Location,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		BookingEnabled:      e.BookingEnabled,
		BookingCapacity:     e.BookingCapacity,
		AllowWaitlist:       e.AllowWaitlist,
		Checkbox1Text:       e.Checkbox1Text,
		Checkbox1Required:   e.Checkbox1Required,
		Checkbox2Text:       e.Checkbox2Text,
		Checkbox2Required:   e.Checkbox2Required,
		QRAttendanceEnabled: e.QRAttendanceEnabled,
	}
}
