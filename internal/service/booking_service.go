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
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BookingService defines the interface for booking business logic
type BookingService interface {
	// CheckBooking returns the event, the caller's booking if any, and a
	// capacity snapshot
	CheckBooking(ctx context.Context, eventID, userID string) (*dto.BookingCheckResponse, error)

	// CreateBooking submits a booking; the assigned status depends on
	// capacity, waitlist policy, and approval policy
	CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)

	// UpdateBooking applies a user-driven transition. Self-cancel is the
	// only permitted one and requires a reason.
	UpdateBooking(ctx context.Context, bookingID, userID string, req *dto.UpdateBookingRequest) (*dto.BookingResponse, error)

	// GetUserBookings retrieves the caller's bookings, paginated
	GetUserBookings(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error)

	// SubmitFeedback records feedback for the caller's booking
	SubmitFeedback(ctx context.Context, userID string, req *dto.SubmitFeedbackRequest) (*dto.BookingResponse, error)

	// ListEventBookings retrieves all bookings for an event (admin)
	ListEventBookings(ctx context.Context, eventID string) ([]*dto.BookingResponse, error)

	// AdminUpdateStatus forces a status transition (admin correction)
	AdminUpdateStatus(ctx context.Context, bookingID string, req *dto.AdminStatusRequest) (*dto.BookingResponse, error)

	// PromoteWaitlist promotes waitlist bookings FIFO while capacity remains
	PromoteWaitlist(ctx context.Context, eventID string, limit int) (*dto.PromoteResponse, error)

	// DeleteCancelledBooking deletes a booking that is already cancelled
	DeleteCancelledBooking(ctx context.Context, bookingID string) error

	// MarkNoShows sweeps confirmed bookings on events that ended before
	// now-grace into no_show. Returns the number swept.
	MarkNoShows(ctx context.Context, grace time.Duration, limit int) (int, error)

	// IssueCertificates issues certificates for eligible attended bookings.
	// Returns the number issued.
	IssueCertificates(ctx context.Context, limit int) (int, error)

	// ReconcileWaitlists promotes across all events holding waitlist
	// bookings. Returns the number promoted.
	ReconcileWaitlists(ctx context.Context, limit int) (int, error)
}

// bookingService implements BookingService
type bookingService struct {
	bookingRepo  repository.BookingRepository
	eventRepo    repository.EventRepository
	certRepo     repository.CertificateRepository
	availability repository.AvailabilityCache
	publisher    EventPublisher
	promoteBatch int
}

// BookingServiceConfig contains configuration for the booking service
type BookingServiceConfig struct {
	PromoteBatchSize int
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo repository.BookingRepository,
	eventRepo repository.EventRepository,
	certRepo repository.CertificateRepository,
	availability repository.AvailabilityCache,
	publisher EventPublisher,
	cfg *BookingServiceConfig,
) BookingService {
	promoteBatch := 100
	if cfg != nil && cfg.PromoteBatchSize > 0 {
		promoteBatch = cfg.PromoteBatchSize
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &bookingService{
		bookingRepo:  bookingRepo,
		eventRepo:    eventRepo,
		certRepo:     certRepo,
		availability: availability,
		publisher:    publisher,
		promoteBatch: promoteBatch,
	}
}

// CheckBooking returns the event, the caller's booking if any, and a
// capacity snapshot
func (s *bookingService) CheckBooking(ctx context.Context, eventID, userID string) (*dto.BookingCheckResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.check")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", userID),
	)

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	availability, err := s.snapshotAvailability(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := &dto.BookingCheckResponse{
		Event:        dto.FromDomainEvent(event),
		Availability: *availability,
	}

	if userID != "" {
		booking, err := s.bookingRepo.GetActiveByEventAndUser(ctx, eventID, userID)
		if err != nil && err != domain.ErrBookingNotFound {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if booking != nil {
			resp.HasBooking = true
			resp.Booking = dto.FromDomainBooking(booking)
		}
	}

	span.SetAttributes(attribute.Bool("has_booking", resp.HasBooking))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// snapshotAvailability computes the availability snapshot, going through the
// short-TTL cache
func (s *bookingService) snapshotAvailability(ctx context.Context, event *domain.Event) (*domain.Availability, error) {
	if s.availability != nil {
		if cached, hit, err := s.availability.Get(ctx, event.ID); err == nil && hit {
			return cached, nil
		}
	}

	confirmed, waitlisted, err := s.bookingRepo.CountByStatus(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	availability := domain.ComputeAvailability(event, confirmed, waitlisted)
	if s.availability != nil {
		if err := s.availability.Set(ctx, event.ID, &availability); err != nil {
			logger.Get().Warn("failed to cache availability",
				zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	return &availability, nil
}

// invalidateAvailability drops the cached snapshot after a mutation
func (s *bookingService) invalidateAvailability(ctx context.Context, eventID string) {
	if s.availability == nil {
		return
	}
	if err := s.availability.Invalidate(ctx, eventID); err != nil {
		logger.Get().Warn("failed to invalidate availability cache",
			zap.String("event_id", eventID), zap.Error(err))
	}
}

// CreateBooking submits a booking with idempotency support
func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	if req == nil || req.EventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("event_id", req.EventID),
	)

	// Check idempotency key if provided
	if req.IdempotencyKey != "" {
		existing, err := s.bookingRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if existing != nil {
			// A key only replays the caller's own booking for the same
			// event. Anything else is a reused key, not a retry.
			if existing.UserID != userID || existing.EventID != req.EventID {
				span.SetStatus(codes.Error, "idempotency key reused")
				return nil, domain.ErrIdempotencyKeyReused
			}
			span.AddEvent("idempotent_replay", trace.WithAttributes(
				attribute.String("booking_id", existing.ID),
			))
			span.SetStatus(codes.Ok, "")
			return dto.FromDomainBooking(existing), nil
		}
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now()
	if !event.BookingEnabled {
		span.SetStatus(codes.Error, "booking disabled")
		metrics.RecordFailure(ctx, event.ID, "booking_disabled")
		return nil, domain.ErrBookingDisabled
	}
	if event.HasEnded(now) {
		span.SetStatus(codes.Error, "event ended")
		metrics.RecordFailure(ctx, event.ID, "event_ended")
		return nil, domain.ErrEventEnded
	}
	if err := event.ValidateCheckboxes(req.Checkbox1Checked, req.Checkbox2Checked); err != nil {
		span.SetStatus(codes.Error, "checkbox required")
		metrics.RecordFailure(ctx, event.ID, "checkbox_required")
		return nil, err
	}

	booking := &domain.Booking{
		ID:                uuid.New().String(),
		EventID:           event.ID,
		UserID:            userID,
		Checkbox1Accepted: req.Checkbox1Checked,
		Checkbox2Accepted: req.Checkbox2Checked,
		IdempotencyKey:    req.IdempotencyKey,
		BookedAt:          now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Status is assigned transactionally against current capacity
	if err := s.bookingRepo.CreateBooking(ctx, booking, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		switch err {
		case domain.ErrEventFull, domain.ErrWaitlistNotAllowed:
			metrics.RecordFailure(ctx, event.ID, "capacity")
		case domain.ErrBookingAlreadyExists:
			metrics.RecordFailure(ctx, event.ID, "duplicate")
		}
		return nil, err
	}

	s.invalidateAvailability(ctx, event.ID)
	metrics.RecordBookingCreated(ctx, event.ID, string(booking.Status))
	s.publishStatusEvent(booking)

	span.AddEvent("booking_created", trace.WithAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("event_id", booking.EventID),
		attribute.String("status", string(booking.Status)),
	))
	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomainBooking(booking), nil
}

// publishStatusEvent publishes the lifecycle event matching the booking's
// assigned status (async, does not block the request)
func (s *bookingService) publishStatusEvent(booking *domain.Booking) {
	go func(b *domain.Booking) {
		ctx := context.Background()
		var err error
		switch b.Status {
		case domain.BookingStatusConfirmed:
			err = s.publisher.PublishBookingConfirmed(ctx, b)
		case domain.BookingStatusWaitlist:
			err = s.publisher.PublishBookingWaitlisted(ctx, b)
		case domain.BookingStatusPending:
			err = s.publisher.PublishBookingPending(ctx, b)
		}
		if err != nil {
			logger.Get().Warn("failed to publish booking event",
				zap.String("booking_id", b.ID),
				zap.String("status", string(b.Status)),
				zap.Error(err))
		}
	}(booking)
}

// UpdateBooking applies a user-driven transition (self-cancel only)
func (s *bookingService) UpdateBooking(ctx context.Context, bookingID, userID string, req *dto.UpdateBookingRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.update")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("user_id", userID),
	)

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || domain.BookingStatus(req.Status) != domain.BookingStatusCancelled {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, domain.ErrInvalidTransition
	}
	if req.CancellationReason == "" {
		span.SetStatus(codes.Error, "reason required")
		return nil, domain.ErrCancellationReason
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Verify ownership
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "invalid user")
		return nil, domain.ErrBookingNotFound
	}

	if !booking.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		span.SetStatus(codes.Error, "not cancellable")
		return nil, domain.ErrBookingNotCancellable
	}

	wasWaitlisted := booking.Status == domain.BookingStatusWaitlist

	promoted, err := s.bookingRepo.CancelWithPromotion(ctx, bookingID, req.CancellationReason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.invalidateAvailability(ctx, booking.EventID)

	now := time.Now()
	booking.Status = domain.BookingStatusCancelled
	booking.CancellationReason = req.CancellationReason
	booking.CancelledAt = &now

	// Publish cancel + promotion events (async, don't block on failure)
	go func(cancelled, promoted *domain.Booking) {
		bg := context.Background()
		if pubErr := s.publisher.PublishBookingCancelled(bg, cancelled); pubErr != nil {
			logger.Get().Warn("failed to publish cancel event",
				zap.String("booking_id", cancelled.ID), zap.Error(pubErr))
		}
		if promoted != nil {
			if pubErr := s.publisher.PublishBookingPromoted(bg, promoted); pubErr != nil {
				logger.Get().Warn("failed to publish promotion event",
					zap.String("booking_id", promoted.ID), zap.Error(pubErr))
			}
		}
	}(booking, promoted)

	metrics.RecordCancellation(ctx, booking.EventID, wasWaitlisted)
	if promoted != nil {
		metrics.RecordPromotion(ctx, booking.EventID, 1)
	}

	span.AddEvent("booking_cancelled", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("event_id", booking.EventID),
		attribute.Bool("promoted_replacement", promoted != nil),
	))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomainBooking(booking), nil
}

// GetUserBookings retrieves the caller's bookings, paginated
func (s *bookingService) GetUserBookings(ctx context.Context, userID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	bookings, err := s.bookingRepo.GetByUserID(ctx, userID, pageSize, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	total, err := s.bookingRepo.CountByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	responses := make([]*dto.BookingResponse, len(bookings))
	for i, b := range bookings {
		responses[i] = dto.FromDomainBooking(b)
	}

	span.SetAttributes(attribute.Int("count", len(responses)))
	span.SetStatus(codes.Ok, "")
	return dto.NewPaginatedResponse(responses, page, pageSize, total), nil
}

// SubmitFeedback records feedback for the caller's booking
func (s *bookingService) SubmitFeedback(ctx context.Context, userID string, req *dto.SubmitFeedbackRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.submit_feedback")
	defer span.End()

	if req == nil || req.BookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("booking_id", req.BookingID),
		attribute.String("user_id", userID),
	)

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Verify ownership
	if booking.UserID != userID {
		span.SetStatus(codes.Error, "invalid user")
		return nil, domain.ErrBookingNotFound
	}

	now := time.Now()
	if err := s.bookingRepo.RecordFeedback(ctx, booking.ID, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking.FeedbackSubmittedAt = &now

	span.AddEvent("feedback_recorded", trace.WithAttributes(
		attribute.String("booking_id", booking.ID),
	))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomainBooking(booking), nil
}

// ListEventBookings retrieves all bookings for an event (admin)
func (s *bookingService) ListEventBookings(ctx context.Context, eventID string) ([]*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	// Reject unknown events explicitly rather than returning an empty list
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	bookings, err := s.bookingRepo.ListByEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	responses := make([]*dto.BookingResponse, len(bookings))
	for i, b := range bookings {
		responses[i] = dto.FromDomainBooking(b)
	}

	span.SetAttributes(attribute.Int("count", len(responses)))
	span.SetStatus(codes.Ok, "")
	return responses, nil
}

// AdminUpdateStatus forces a status transition (admin correction)
func (s *bookingService) AdminUpdateStatus(ctx context.Context, bookingID string, req *dto.AdminStatusRequest) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.admin_update_status")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}

	status := domain.BookingStatus(req.Status)
	if !status.IsValid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidBookingStatus
	}

	span.SetAttributes(attribute.String("target_status", string(status)))

	if err := s.bookingRepo.UpdateStatusAdmin(ctx, bookingID, status, req.StatusReason); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.invalidateAvailability(ctx, booking.EventID)

	span.AddEvent("status_overridden", trace.WithAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("status", string(status)),
	))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomainBooking(booking), nil
}

// PromoteWaitlist promotes waitlist bookings FIFO while capacity remains
func (s *bookingService) PromoteWaitlist(ctx context.Context, eventID string, limit int) (*dto.PromoteResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.promote_waitlist")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if limit <= 0 {
		limit = s.promoteBatch
	}

	promoted, err := s.bookingRepo.PromoteWaitlist(ctx, eventID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.invalidateAvailability(ctx, eventID)
	metrics.RecordPromotion(ctx, eventID, int64(len(promoted)))

	ids := make([]string, len(promoted))
	for i, b := range promoted {
		ids[i] = b.ID
	}

	// Publish promotion events (async, don't block on failure)
	go func(bookings []*domain.Booking) {
		bg := context.Background()
		for _, b := range bookings {
			if pubErr := s.publisher.PublishBookingPromoted(bg, b); pubErr != nil {
				logger.Get().Warn("failed to publish promotion event",
					zap.String("booking_id", b.ID), zap.Error(pubErr))
			}
		}
	}(promoted)

	span.SetAttributes(attribute.Int("promoted_count", len(promoted)))
	span.SetStatus(codes.Ok, "")
	return &dto.PromoteResponse{
		EventID:       eventID,
		PromotedCount: len(promoted),
		BookingIDs:    ids,
	}, nil
}

// DeleteCancelledBooking deletes a booking that is already cancelled
func (s *bookingService) DeleteCancelledBooking(ctx context.Context, bookingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.delete_cancelled")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return domain.ErrInvalidBookingID
	}

	if err := s.bookingRepo.DeleteCancelled(ctx, bookingID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkNoShows sweeps confirmed bookings on ended events into no_show
func (s *bookingService) MarkNoShows(ctx context.Context, grace time.Duration, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.mark_no_shows")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().Add(-grace)

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.String("cutoff", cutoff.Format(time.RFC3339)),
	)

	candidates, err := s.bookingRepo.NoShowCandidates(ctx, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	swept := 0
	for _, booking := range candidates {
		if err := s.bookingRepo.MarkNoShow(ctx, booking.ID); err != nil {
			// Concurrently checked in or cancelled since the scan, skip
			logger.Get().Debug("skipping no-show candidate",
				zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}

		booking.Status = domain.BookingStatusNoShow
		go func(b *domain.Booking) {
			if pubErr := s.publisher.PublishBookingNoShow(context.Background(), b); pubErr != nil {
				logger.Get().Warn("failed to publish no-show event",
					zap.String("booking_id", b.ID), zap.Error(pubErr))
			}
		}(booking)

		swept++
	}

	metrics.RecordNoShow(ctx, int64(swept))

	span.SetAttributes(attribute.Int("swept_count", swept))
	span.SetStatus(codes.Ok, "")
	return swept, nil
}

// IssueCertificates issues certificates for eligible attended bookings
func (s *bookingService) IssueCertificates(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.issue_certificates")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	span.SetAttributes(attribute.Int("limit", limit))

	candidates, err := s.bookingRepo.CertificateCandidates(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	issued := 0
	for _, booking := range candidates {
		now := time.Now()
		cert := &domain.Certificate{
			ID:        uuid.New().String(),
			BookingID: booking.ID,
			EventID:   booking.EventID,
			UserID:    booking.UserID,
			IssuedAt:  now,
			CreatedAt: now,
		}

		// Email delivery rides on the published event; the flag records
		// whether the notification made it onto the bus.
		cert.EmailSent = s.publisher.PublishCertificateIssued(ctx, booking, cert) == nil
		if !cert.EmailSent {
			logger.Get().Warn("certificate event publish failed",
				zap.String("booking_id", booking.ID),
				zap.String("certificate_id", cert.ID))
		}

		if err := s.certRepo.Issue(ctx, cert, cert.EmailSent); err != nil {
			logger.Get().Error("failed to issue certificate",
				zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}

		metrics.RecordCertificateIssued(ctx, booking.EventID, cert.EmailSent)
		issued++
	}

	span.SetAttributes(attribute.Int("issued_count", issued))
	span.SetStatus(codes.Ok, "")
	return issued, nil
}

// ReconcileWaitlists promotes across all events holding waitlist bookings.
// Safety net for capacity opened out-of-band, e.g. an admin raising the cap.
func (s *bookingService) ReconcileWaitlists(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.reconcile_waitlists")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	span.SetAttributes(attribute.Int("limit", limit))

	eventIDs, err := s.bookingRepo.EventIDsWithWaitlist(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	promoted := 0
	for _, eventID := range eventIDs {
		resp, err := s.PromoteWaitlist(ctx, eventID, s.promoteBatch)
		if err != nil {
			logger.Get().Warn("waitlist reconcile failed for event",
				zap.String("event_id", eventID), zap.Error(err))
			continue
		}
		promoted += resp.PromotedCount
	}

	span.SetAttributes(attribute.Int("promoted_count", promoted))
	span.SetStatus(codes.Ok, "")
	return promoted, nil
}

// Ensure bookingService implements BookingService
var _ BookingService = (*bookingService)(nil)
