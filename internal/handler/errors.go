package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
)

// respondError converts domain errors to HTTP responses. All handlers share
// the same mapping so a given sentinel always surfaces the same way.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "BOOKING_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrQRCodeNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "QR_CODE_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrNoConfirmedBooking):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "NO_CONFIRMED_BOOKING",
			Message: "No confirmed booking found for this event",
		})
	case errors.Is(err, domain.ErrBookingDisabled):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "BOOKING_DISABLED",
		})
	case errors.Is(err, domain.ErrQRAttendanceDisabled):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "QR_ATTENDANCE_DISABLED",
		})
	case errors.Is(err, domain.ErrOutsideScanWindow):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "OUTSIDE_SCAN_WINDOW",
			Message: "This QR code is not valid at this time",
		})
	case errors.Is(err, domain.ErrEventEnded):
		c.JSON(http.StatusGone, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_ENDED",
		})
	case errors.Is(err, domain.ErrEventFull):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_FULL",
		})
	case errors.Is(err, domain.ErrWaitlistNotAllowed):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "WAITLIST_NOT_ALLOWED",
			Message: "The event is full and does not accept waitlist entries",
		})
	case errors.Is(err, domain.ErrBookingAlreadyExists):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "BOOKING_EXISTS",
		})
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CHECKED_IN",
		})
	case errors.Is(err, domain.ErrDuplicateScan):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "DUPLICATE_SCAN",
			Message: "Scan already processed, please wait before retrying",
		})
	case errors.Is(err, domain.ErrFeedbackAlreadyExists):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "FEEDBACK_EXISTS",
		})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBookingNotCancellable),
		errors.Is(err, domain.ErrBookingNotCancelled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_TRANSITION",
		})
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "IDEMPOTENCY_KEY_REUSED",
			Message: "Idempotency key already used with different request",
		})
	case errors.Is(err, domain.ErrWaitlistEmpty):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "WAITLIST_EMPTY",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
