package domain

import (
	"time"
)

// Event represents the booking-relevant slice of an event entity
type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	BookingEnabled bool      `json:"booking_enabled"`

	// BookingCapacity is nil for unlimited capacity.
	BookingCapacity  *int `json:"booking_capacity"`
	AllowWaitlist    bool `json:"allow_waitlist"`
	RequiresApproval bool `json:"requires_approval"`

	// Confirmation checkboxes configured per event. A booking submission
	// must tick every checkbox whose Required flag is set.
	Checkbox1Text     string `json:"confirmation_checkbox_1_text,omitempty"`
	Checkbox1Required bool   `json:"confirmation_checkbox_1_required"`
	Checkbox2Text     string `json:"confirmation_checkbox_2_text,omitempty"`
	Checkbox2Required bool   `json:"confirmation_checkbox_2_required"`

	QRAttendanceEnabled            bool `json:"qr_attendance_enabled"`
	AutoGenerateCertificate        bool `json:"auto_generate_certificate"`
	FeedbackRequiredForCertificate bool `json:"feedback_required_for_certificate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCapacityLimit reports whether the event enforces a confirmed-booking cap.
func (e *Event) HasCapacityLimit() bool {
	return e.BookingCapacity != nil && *e.BookingCapacity >= 0
}

// Capacity returns the configured capacity, or -1 for unlimited.
func (e *Event) Capacity() int {
	if !e.HasCapacityLimit() {
		return -1
	}
	return *e.BookingCapacity
}

// HasEnded reports whether the event is over at the given instant.
func (e *Event) HasEnded(now time.Time) bool {
	return !e.EndTime.IsZero() && now.After(e.EndTime)
}

// ValidateCheckboxes checks a submission's checkbox state against the event
// configuration. Required checkboxes must be ticked.
func (e *Event) ValidateCheckboxes(checkbox1, checkbox2 bool) error {
	if e.Checkbox1Required && !checkbox1 {
		return ErrCheckboxRequired
	}
	if e.Checkbox2Required && !checkbox2 {
		return ErrCheckboxRequired
	}
	return nil
}

// AvailabilityStatus summarizes whether new bookings land as confirmed,
// waitlist, pending, or are rejected outright.
type AvailabilityStatus string

const (
	AvailabilityOpen     AvailabilityStatus = "open"
	AvailabilityWaitlist AvailabilityStatus = "waitlist"
	AvailabilityPending  AvailabilityStatus = "pending_approval"
	AvailabilityFull     AvailabilityStatus = "full"
	AvailabilityClosed   AvailabilityStatus = "closed"
)

// Availability is the capacity snapshot returned by the check endpoint.
type Availability struct {
	Status         AvailabilityStatus `json:"status"`
	ConfirmedCount int                `json:"confirmed_count"`
	AvailableSlots int                `json:"available_slots"` // -1 = unlimited
	WaitlistCount  int                `json:"waitlist_count"`
}

// ComputeAvailability derives the availability snapshot for an event given
// current confirmed and waitlist counts.
func ComputeAvailability(e *Event, confirmed, waitlisted int) Availability {
	a := Availability{
		ConfirmedCount: confirmed,
		WaitlistCount:  waitlisted,
		AvailableSlots: -1,
	}

	switch {
	case !e.BookingEnabled:
		a.Status = AvailabilityClosed
	case e.RequiresApproval:
		a.Status = AvailabilityPending
	default:
		a.Status = AvailabilityOpen
	}

	if e.HasCapacityLimit() {
		slots := e.Capacity() - confirmed
		if slots < 0 {
			slots = 0
		}
		a.AvailableSlots = slots
		if slots == 0 && a.Status == AvailabilityOpen {
			if e.AllowWaitlist {
				a.Status = AvailabilityWaitlist
			} else {
				a.Status = AvailabilityFull
			}
		}
	}

	return a
}
