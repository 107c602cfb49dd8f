package domain

import (
	"strings"
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusWaitlist  BookingStatus = "waitlist"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusAttended  BookingStatus = "attended"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusWaitlist,
		BookingStatusCancelled, BookingStatusAttended, BookingStatusNoShow:
		return true
	}
	return false
}

// String returns the string representation of BookingStatus
func (s BookingStatus) String() string {
	return string(s)
}

// IsActive reports whether the status counts against the one-booking-per-user
// rule. Cancelled bookings do not block a re-book.
func (s BookingStatus) IsActive() bool {
	return s.IsValid() && s != BookingStatusCancelled
}

// IsTerminal reports whether no further user-driven transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCancelled, BookingStatusAttended, BookingStatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving from s to
// target. Admin corrections bypass this check at the repository level.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	if !s.IsValid() || !target.IsValid() || s == target {
		return false
	}
	switch s {
	case BookingStatusPending:
		return target == BookingStatusConfirmed || target == BookingStatusCancelled
	case BookingStatusConfirmed:
		return target == BookingStatusCancelled ||
			target == BookingStatusAttended ||
			target == BookingStatusNoShow
	case BookingStatusWaitlist:
		return target == BookingStatusConfirmed || target == BookingStatusCancelled
	}
	return false
}

// Booking represents a booking entity
type Booking struct {
	ID                   string        `json:"id"`
	EventID              string        `json:"event_id"`
	UserID               string        `json:"user_id"`
	Status               BookingStatus `json:"status"`
	StatusReason         string        `json:"status_reason,omitempty"`
	CancellationReason   string        `json:"cancellation_reason,omitempty"`
	Checkbox1Accepted    bool          `json:"confirmation_checkbox_1_checked"`
	Checkbox2Accepted    bool          `json:"confirmation_checkbox_2_checked"`
	CheckedIn            bool          `json:"checked_in"`
	CheckedInAt          *time.Time    `json:"checked_in_at,omitempty"`
	CertificateGenerated bool          `json:"certificate_generated"`
	CertificateEmailSent bool          `json:"certificate_email_sent"`
	FeedbackSubmittedAt  *time.Time    `json:"feedback_submitted_at,omitempty"`
	IdempotencyKey       string        `json:"idempotency_key,omitempty"`
	BookedAt             time.Time     `json:"booked_at"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty"`
	PromotedAt           *time.Time    `json:"promoted_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// Validate validates all booking fields
func (b *Booking) Validate() error {
	if err := b.ValidateID(); err != nil {
		return err
	}
	if err := b.ValidateUserID(); err != nil {
		return err
	}
	if err := b.ValidateEventID(); err != nil {
		return err
	}
	if !b.Status.IsValid() {
		return ErrInvalidBookingStatus
	}
	return nil
}

// ValidateID validates the booking ID
func (b *Booking) ValidateID() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrInvalidBookingID
	}
	return nil
}

// ValidateUserID validates the user ID
func (b *Booking) ValidateUserID() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrInvalidUserID
	}
	return nil
}

// ValidateEventID validates the event ID
func (b *Booking) ValidateEventID() error {
	if strings.TrimSpace(b.EventID) == "" {
		return ErrInvalidEventID
	}
	return nil
}

// IsCheckInEligible reports whether a QR scan may mark this booking attended.
// Confirmed bookings that have not yet checked in are eligible; pending and
// waitlist holders are not.
func (b *Booking) IsCheckInEligible() bool {
	return b.Status == BookingStatusConfirmed && !b.CheckedIn
}

// IsCertificateEligible reports whether the certificate worker may issue a
// certificate for this booking. The feedback gate is event-configured.
func (b *Booking) IsCertificateEligible(feedbackRequired bool) bool {
	if b.Status != BookingStatusAttended || b.CertificateGenerated {
		return false
	}
	if feedbackRequired && b.FeedbackSubmittedAt == nil {
		return false
	}
	return true
}
