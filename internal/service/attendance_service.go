package service

import (
	"context"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/metrics"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/repository"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/logger"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AttendanceService defines the interface for QR attendance scanning
type AttendanceService interface {
	// Scan processes a QR attendance scan for the authenticated user and
	// marks their confirmed booking attended
	Scan(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error)
}

// attendanceService implements AttendanceService
type attendanceService struct {
	bookingRepo  repository.BookingRepository
	eventRepo    repository.EventRepository
	qrRepo       repository.QRCodeRepository
	guard        repository.ScanGuard
	publisher    EventPublisher
	dedupeWindow time.Duration
}

// AttendanceServiceConfig contains configuration for the attendance service
type AttendanceServiceConfig struct {
	ScanDedupeWindow time.Duration
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(
	bookingRepo repository.BookingRepository,
	eventRepo repository.EventRepository,
	qrRepo repository.QRCodeRepository,
	guard repository.ScanGuard,
	publisher EventPublisher,
	cfg *AttendanceServiceConfig,
) AttendanceService {
	window := 3 * time.Second
	if cfg != nil && cfg.ScanDedupeWindow > 0 {
		window = cfg.ScanDedupeWindow
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &attendanceService{
		bookingRepo:  bookingRepo,
		eventRepo:    eventRepo,
		qrRepo:       qrRepo,
		guard:        guard,
		publisher:    publisher,
		dedupeWindow: window,
	}
}

// Scan processes a QR attendance scan for the authenticated user
func (s *attendanceService) Scan(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendance.scan")
	defer span.End()

	if req == nil || req.QRCodeData == "" {
		span.SetStatus(codes.Error, "qr code not found")
		return nil, domain.ErrQRCodeNotFound
	}
	if req.EventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("event_id", req.EventID),
		attribute.String("user_id", userID),
	)

	// Suppress rapid duplicate submissions of the same payload. The guard
	// key includes the user so two attendees scanning the same poster do
	// not block each other.
	acquired, err := s.guard.Acquire(ctx, userID+":"+req.QRCodeData, s.dedupeWindow)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !acquired {
		span.SetStatus(codes.Error, "duplicate scan")
		metrics.RecordScanRejected(ctx, req.EventID, "duplicate")
		return nil, domain.ErrDuplicateScan
	}

	qr, err := s.qrRepo.GetActiveByToken(ctx, req.QRCodeData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordScanRejected(ctx, req.EventID, "unknown_token")
		return nil, err
	}

	// Token must belong to the event the scanner claims
	if qr.EventID != req.EventID {
		span.SetStatus(codes.Error, "token event mismatch")
		metrics.RecordScanRejected(ctx, req.EventID, "unknown_token")
		return nil, domain.ErrQRCodeNotFound
	}

	now := time.Now()
	if err := qr.IsScannable(now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordScanRejected(ctx, req.EventID, "outside_window")
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, qr.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !event.QRAttendanceEnabled {
		span.SetStatus(codes.Error, "qr attendance disabled")
		metrics.RecordScanRejected(ctx, event.ID, "attendance_disabled")
		return nil, domain.ErrQRAttendanceDisabled
	}

	booking, err := s.bookingRepo.GetActiveByEventAndUser(ctx, event.ID, userID)
	if err != nil {
		if err == domain.ErrBookingNotFound {
			span.SetStatus(codes.Error, "no confirmed booking")
			metrics.RecordScanRejected(ctx, event.ID, "no_booking")
			return nil, domain.ErrNoConfirmedBooking
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.bookingRepo.CheckIn(ctx, booking.ID, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch err {
		case domain.ErrAlreadyCheckedIn:
			metrics.RecordScanRejected(ctx, event.ID, "already_checked_in")
		case domain.ErrNoConfirmedBooking:
			metrics.RecordScanRejected(ctx, event.ID, "no_booking")
		}
		return nil, err
	}

	booking.Status = domain.BookingStatusAttended
	booking.CheckedIn = true
	booking.CheckedInAt = &now

	// The feedback email rides on the checked-in event; publish inline so
	// the response can report whether it made it onto the bus
	feedbackEmailSent := true
	if pubErr := s.publisher.PublishBookingCheckedIn(ctx, booking); pubErr != nil {
		feedbackEmailSent = false
		logger.Get().Warn("failed to publish check-in event",
			zap.String("booking_id", booking.ID), zap.Error(pubErr))
	}

	metrics.RecordScanAccepted(ctx, event.ID)

	span.AddEvent("checked_in", trace.WithAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("event_id", event.ID),
	))
	span.SetStatus(codes.Ok, "")
	return &dto.ScanResponse{
		Message: "Attendance recorded",
		Details: dto.ScanDetails{
			EventTitle:        event.Title,
			EventDate:         event.StartTime,
			CheckedInAt:       now,
			FeedbackEmailSent: feedbackEmailSent,
		},
	}, nil
}

// Ensure attendanceService implements AttendanceService
var _ AttendanceService = (*attendanceService)(nil)
