package domain

import (
	"testing"
	"time"
)

func TestBookingStatus_IsValid(t *testing.T) {
	valid := []BookingStatus{
		BookingStatusPending, BookingStatusConfirmed, BookingStatusWaitlist,
		BookingStatusCancelled, BookingStatusAttended, BookingStatusNoShow,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []BookingStatus{"", "reserved", "CONFIRMED"} {
		if s.IsValid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{"pending to confirmed", BookingStatusPending, BookingStatusConfirmed, true},
		{"pending to cancelled", BookingStatusPending, BookingStatusCancelled, true},
		{"pending to attended", BookingStatusPending, BookingStatusAttended, false},
		{"confirmed to attended", BookingStatusConfirmed, BookingStatusAttended, true},
		{"confirmed to no_show", BookingStatusConfirmed, BookingStatusNoShow, true},
		{"confirmed to cancelled", BookingStatusConfirmed, BookingStatusCancelled, true},
		{"confirmed to waitlist", BookingStatusConfirmed, BookingStatusWaitlist, false},
		{"waitlist to confirmed", BookingStatusWaitlist, BookingStatusConfirmed, true},
		{"waitlist to cancelled", BookingStatusWaitlist, BookingStatusCancelled, true},
		{"waitlist to attended", BookingStatusWaitlist, BookingStatusAttended, false},
		{"cancelled is terminal", BookingStatusCancelled, BookingStatusConfirmed, false},
		{"attended is terminal", BookingStatusAttended, BookingStatusCancelled, false},
		{"no_show is terminal", BookingStatusNoShow, BookingStatusConfirmed, false},
		{"same status", BookingStatusConfirmed, BookingStatusConfirmed, false},
		{"invalid target", BookingStatusConfirmed, BookingStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestBooking_IsCheckInEligible(t *testing.T) {
	b := &Booking{Status: BookingStatusConfirmed}
	if !b.IsCheckInEligible() {
		t.Error("confirmed booking should be check-in eligible")
	}

	b.CheckedIn = true
	if b.IsCheckInEligible() {
		t.Error("already checked-in booking should not be eligible")
	}

	for _, s := range []BookingStatus{BookingStatusPending, BookingStatusWaitlist, BookingStatusCancelled} {
		b := &Booking{Status: s}
		if b.IsCheckInEligible() {
			t.Errorf("%q booking should not be check-in eligible", s)
		}
	}
}

func TestBooking_IsCertificateEligible(t *testing.T) {
	now := time.Now()

	attended := &Booking{Status: BookingStatusAttended}
	if !attended.IsCertificateEligible(false) {
		t.Error("attended booking without feedback gate should be eligible")
	}
	if attended.IsCertificateEligible(true) {
		t.Error("attended booking without feedback should not pass the feedback gate")
	}

	attended.FeedbackSubmittedAt = &now
	if !attended.IsCertificateEligible(true) {
		t.Error("attended booking with feedback should pass the feedback gate")
	}

	attended.CertificateGenerated = true
	if attended.IsCertificateEligible(false) {
		t.Error("booking with a certificate already generated should not be eligible")
	}

	confirmed := &Booking{Status: BookingStatusConfirmed}
	if confirmed.IsCertificateEligible(false) {
		t.Error("confirmed but not attended booking should not be eligible")
	}
}

func TestComputeAvailability(t *testing.T) {
	capOne := 1
	capTen := 10

	tests := []struct {
		name       string
		event      *Event
		confirmed  int
		waitlisted int
		wantStatus AvailabilityStatus
		wantSlots  int
	}{
		{
			name:       "booking disabled",
			event:      &Event{BookingEnabled: false},
			wantStatus: AvailabilityClosed,
			wantSlots:  -1,
		},
		{
			name:       "unlimited capacity",
			event:      &Event{BookingEnabled: true},
			confirmed:  500,
			wantStatus: AvailabilityOpen,
			wantSlots:  -1,
		},
		{
			name:       "capacity available",
			event:      &Event{BookingEnabled: true, BookingCapacity: &capTen},
			confirmed:  4,
			wantStatus: AvailabilityOpen,
			wantSlots:  6,
		},
		{
			name:       "full with waitlist allowed",
			event:      &Event{BookingEnabled: true, BookingCapacity: &capOne, AllowWaitlist: true},
			confirmed:  1,
			waitlisted: 3,
			wantStatus: AvailabilityWaitlist,
			wantSlots:  0,
		},
		{
			name:       "full without waitlist",
			event:      &Event{BookingEnabled: true, BookingCapacity: &capOne},
			confirmed:  1,
			wantStatus: AvailabilityFull,
			wantSlots:  0,
		},
		{
			name:       "requires approval",
			event:      &Event{BookingEnabled: true, RequiresApproval: true},
			wantStatus: AvailabilityPending,
			wantSlots:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAvailability(tt.event, tt.confirmed, tt.waitlisted)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.AvailableSlots != tt.wantSlots {
				t.Errorf("available_slots = %d, want %d", got.AvailableSlots, tt.wantSlots)
			}
			if got.WaitlistCount != tt.waitlisted {
				t.Errorf("waitlist_count = %d, want %d", got.WaitlistCount, tt.waitlisted)
			}
		})
	}
}

func TestEvent_ValidateCheckboxes(t *testing.T) {
	e := &Event{
		Checkbox1Text:     "I confirm I am eligible to attend",
		Checkbox1Required: true,
		Checkbox2Text:     "I accept the cancellation policy",
		Checkbox2Required: true,
	}

	if err := e.ValidateCheckboxes(true, true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := e.ValidateCheckboxes(false, true); err != ErrCheckboxRequired {
		t.Errorf("expected ErrCheckboxRequired, got %v", err)
	}
	if err := e.ValidateCheckboxes(true, false); err != ErrCheckboxRequired {
		t.Errorf("expected ErrCheckboxRequired, got %v", err)
	}

	optional := &Event{Checkbox1Text: "Optional acknowledgement"}
	if err := optional.ValidateCheckboxes(false, false); err != nil {
		t.Errorf("optional checkboxes should not fail validation: %v", err)
	}
}

func TestQRCode_IsScannable(t *testing.T) {
	now := time.Now()
	qr := &QRCode{
		Token:           "tok",
		Active:          true,
		ScanWindowStart: now.Add(-time.Hour),
		ScanWindowEnd:   now.Add(time.Hour),
	}

	if err := qr.IsScannable(now); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := qr.IsScannable(now.Add(-2 * time.Hour)); err != ErrOutsideScanWindow {
		t.Errorf("expected ErrOutsideScanWindow before window, got %v", err)
	}
	if err := qr.IsScannable(now.Add(2 * time.Hour)); err != ErrOutsideScanWindow {
		t.Errorf("expected ErrOutsideScanWindow after window, got %v", err)
	}

	qr.Active = false
	if err := qr.IsScannable(now); err != ErrQRCodeNotFound {
		t.Errorf("expected ErrQRCodeNotFound for inactive artifact, got %v", err)
	}
}
