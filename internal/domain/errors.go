package domain

import "errors"

// Domain errors
var (
	// Booking errors
	ErrBookingNotFound       = errors.New("booking not found")
	ErrBookingAlreadyExists  = errors.New("an active booking already exists for this event")
	ErrInvalidBookingStatus  = errors.New("invalid booking status")
	ErrInvalidTransition     = errors.New("booking status transition not allowed")
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled in its current status")
	ErrBookingNotCancelled   = errors.New("only cancelled bookings can be deleted")
	ErrIdempotencyKeyReused  = errors.New("idempotency key already used for a different booking")

	// Event errors
	ErrEventNotFound      = errors.New("event not found")
	ErrBookingDisabled    = errors.New("booking is not enabled for this event")
	ErrEventFull          = errors.New("event is at capacity")
	ErrWaitlistNotAllowed = errors.New("event is full and does not allow a waitlist")
	ErrEventEnded         = errors.New("event has already ended")

	// Validation errors
	ErrInvalidUserID      = errors.New("invalid user id")
	ErrInvalidBookingID   = errors.New("invalid booking id")
	ErrInvalidEventID     = errors.New("invalid event id")
	ErrCheckboxRequired   = errors.New("required confirmation checkbox not checked")
	ErrCancellationReason = errors.New("cancellation reason is required")
	ErrInvalidScanWindow  = errors.New("scan window end must be after start")

	// Waitlist errors
	ErrWaitlistEmpty = errors.New("no waitlist bookings to promote")

	// QR / attendance errors
	ErrQRCodeNotFound       = errors.New("qr code not found or inactive")
	ErrQRAttendanceDisabled = errors.New("qr attendance is not enabled for this event")
	ErrOutsideScanWindow    = errors.New("qr code scanned outside the valid scan window")
	ErrAlreadyCheckedIn     = errors.New("booking is already checked in")
	ErrDuplicateScan        = errors.New("duplicate scan suppressed")
	ErrNoConfirmedBooking   = errors.New("no confirmed booking found for this event")

	// Certificate / feedback errors
	ErrCertificateNotEligible = errors.New("booking is not eligible for a certificate")
	ErrFeedbackAlreadyExists  = errors.New("feedback already submitted for this booking")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrQRCodeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidBookingStatus) ||
		errors.Is(err, ErrCheckboxRequired) ||
		errors.Is(err, ErrCancellationReason) ||
		errors.Is(err, ErrInvalidScanWindow)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrBookingAlreadyExists) ||
		errors.Is(err, ErrEventFull) ||
		errors.Is(err, ErrWaitlistNotAllowed) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrBookingNotCancellable) ||
		errors.Is(err, ErrBookingNotCancelled) ||
		errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrFeedbackAlreadyExists)
}

// IsScanRejection checks if the error is an attendance-scan rejection that
// should surface to the scanner UI rather than as a server fault.
func IsScanRejection(err error) bool {
	return errors.Is(err, ErrOutsideScanWindow) ||
		errors.Is(err, ErrDuplicateScan) ||
		errors.Is(err, ErrNoConfirmedBooking) ||
		errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrQRAttendanceDisabled)
}
