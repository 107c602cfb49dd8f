package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

const bookingColumns = `
	id, event_id, user_id, status, status_reason, cancellation_reason,
	checkbox_1_accepted, checkbox_2_accepted,
	checked_in, checked_in_at,
	certificate_generated, certificate_email_sent, feedback_submitted_at,
	idempotency_key, booked_at, cancelled_at, promoted_at,
	created_at, updated_at
`

// PostgresBookingRepository implements BookingRepository using PostgreSQL
// with pgxpool. Capacity arithmetic and waitlist promotion are serialized
// per event by locking the event row inside the transaction.
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// CreateBooking inserts a booking, assigning its status under the event's
// row lock so concurrent submissions cannot oversubscribe capacity.
func (r *PostgresBookingRepository) CreateBooking(ctx context.Context, booking *domain.Booking, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("user_id", booking.UserID),
		attribute.String("event_id", booking.EventID),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize capacity decisions per event.
	if _, err := tx.Exec(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, booking.EventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to lock event row: %w", err)
	}

	status := domain.BookingStatusConfirmed
	switch {
	case event.RequiresApproval:
		status = domain.BookingStatusPending
	case event.HasCapacityLimit():
		var confirmed int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND status = 'confirmed'`,
			booking.EventID,
		).Scan(&confirmed)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to count confirmed bookings: %w", err)
		}
		if confirmed >= event.Capacity() {
			if !event.AllowWaitlist {
				span.SetStatus(codes.Error, "event full")
				return domain.ErrWaitlistNotAllowed
			}
			status = domain.BookingStatusWaitlist
		}
	}
	booking.Status = status

	query := `
		INSERT INTO bookings (
			id, event_id, user_id, status,
			checkbox_1_accepted, checkbox_2_accepted,
			idempotency_key, booked_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err = tx.Exec(ctx, query,
		booking.ID,
		booking.EventID,
		booking.UserID,
		booking.Status.String(),
		booking.Checkbox1Accepted,
		booking.Checkbox2Accepted,
		nullString(booking.IdempotencyKey),
		booking.BookedAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			span.SetStatus(codes.Error, "already exists")
			return domain.ErrBookingAlreadyExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetAttributes(attribute.String("status", booking.Status.String()))
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBookingRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetActiveByEventAndUser retrieves the caller's non-cancelled booking for an event
func (r *PostgresBookingRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_active")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", userID),
	)

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE event_id = $1 AND user_id = $2 AND status != 'cancelled'
	`

	booking, err := scanBookingRow(r.pool.QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get active booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByIdempotencyKey retrieves a booking by idempotency key
func (r *PostgresBookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_idempotency_key")
	defer span.End()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = $1`

	booking, err := scanBookingRow(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil // Not found, but not an error
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", err)
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByUserID retrieves a user's bookings, newest first
func (r *PostgresBookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_user_id")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get bookings by user ID: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// CountByUserID counts a user's bookings
func (r *PostgresBookingRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.count_by_user_id")
	defer span.End()

	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return count, nil
}

// ListByEvent retrieves all bookings for an event ordered by booked_at
func (r *PostgresBookingRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE event_id = $1
		ORDER BY booked_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list bookings by event: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// CountByStatus returns confirmed and waitlist counts for an event
func (r *PostgresBookingRepository) CountByStatus(ctx context.Context, eventID string) (int, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.count_by_status")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'waitlist')
		FROM bookings
		WHERE event_id = $1
	`

	var confirmed, waitlisted int
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&confirmed, &waitlisted); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, fmt.Errorf("failed to count bookings by status: %w", err)
	}

	span.SetAttributes(
		attribute.Int("confirmed", confirmed),
		attribute.Int("waitlisted", waitlisted),
	)
	span.SetStatus(codes.Ok, "")
	return confirmed, waitlisted, nil
}

// CancelWithPromotion cancels a booking and promotes the earliest waitlist
// booking when the cancellation frees a confirmed slot. Both writes happen
// inside one transaction under the event row lock.
func (r *PostgresBookingRepository) CancelWithPromotion(ctx context.Context, id, reason string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.cancel_with_promotion")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var eventID string
	err = tx.QueryRow(ctx, `SELECT event_id FROM bookings WHERE id = $1`, id).Scan(&eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load booking for cancel: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock event row: %w", err)
	}

	// Status must be read under the event lock. A concurrent cancel can
	// promote this booking from the waitlist between the lookup above and
	// the lock, and promotion is decided from this value.
	var prevStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&prevStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load booking status for cancel: %w", err)
	}

	now := time.Now()
	result, err := tx.Exec(ctx, `
		UPDATE bookings SET
			status = 'cancelled',
			cancellation_reason = $2,
			cancelled_at = $3,
			updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'confirmed', 'waitlist')
	`, id, reason, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not cancellable")
		return nil, domain.ErrBookingNotCancellable
	}

	// Only a freed confirmed slot triggers promotion.
	var promoted *domain.Booking
	if prevStatus == domain.BookingStatusConfirmed.String() {
		promoted, err = promoteOneTx(ctx, tx, eventID, now)
		if err != nil && !errors.Is(err, domain.ErrWaitlistEmpty) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if promoted != nil {
		span.SetAttributes(attribute.String("promoted_booking_id", promoted.ID))
	}
	span.SetStatus(codes.Ok, "")
	return promoted, nil
}

// promoteOneTx promotes the earliest waitlist booking for the event inside
// an open transaction. FIFO order is booked_at, id. Returns
// domain.ErrWaitlistEmpty when there is nobody to promote.
func promoteOneTx(ctx context.Context, tx pgx.Tx, eventID string, now time.Time) (*domain.Booking, error) {
	query := `
		UPDATE bookings SET
			status = 'confirmed',
			promoted_at = $2,
			updated_at = $2
		WHERE id = (
			SELECT id FROM bookings
			WHERE event_id = $1 AND status = 'waitlist'
			ORDER BY booked_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + bookingColumns

	booking, err := scanBookingRow(tx.QueryRow(ctx, query, eventID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWaitlistEmpty
		}
		return nil, fmt.Errorf("failed to promote waitlist booking: %w", err)
	}
	return booking, nil
}

// PromoteWaitlist promotes waitlist bookings FIFO while capacity remains
func (r *PostgresBookingRepository) PromoteWaitlist(ctx context.Context, eventID string, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.promote_waitlist")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("limit", limit),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock event row: %w", err)
	}

	var capacity *int
	if err := tx.QueryRow(ctx, `SELECT booking_capacity FROM events WHERE id = $1`, eventID).Scan(&capacity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "event not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load event capacity: %w", err)
	}

	var confirmed int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND status = 'confirmed'`,
		eventID,
	).Scan(&confirmed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count confirmed bookings: %w", err)
	}

	slots := limit
	if capacity != nil {
		free := *capacity - confirmed
		if free < slots {
			slots = free
		}
	}

	now := time.Now()
	var promoted []*domain.Booking
	for i := 0; i < slots; i++ {
		booking, err := promoteOneTx(ctx, tx, eventID, now)
		if err != nil {
			if errors.Is(err, domain.ErrWaitlistEmpty) {
				break
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		promoted = append(promoted, booking)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetAttributes(attribute.Int("promoted", len(promoted)))
	span.SetStatus(codes.Ok, "")
	return promoted, nil
}

// EventIDsWithWaitlist returns IDs of events that currently hold waitlist bookings
func (r *PostgresBookingRepository) EventIDsWithWaitlist(ctx context.Context, limit int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.events_with_waitlist")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT event_id FROM bookings
		WHERE status = 'waitlist'
		LIMIT $1
	`, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list events with waitlist: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating event ids: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// UpdateStatusAdmin forces a status transition without lifecycle checks
func (r *PostgresBookingRepository) UpdateStatusAdmin(ctx context.Context, id string, status domain.BookingStatus, reason string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update_status_admin")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", id),
		attribute.String("status", status.String()),
	)

	query := `
		UPDATE bookings SET
			status = $2,
			status_reason = $3,
			updated_at = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, status.String(), reason, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CheckIn marks a confirmed booking attended
func (r *PostgresBookingRepository) CheckIn(ctx context.Context, id string, at time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.check_in")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `
		UPDATE bookings SET
			status = 'attended',
			checked_in = TRUE,
			checked_in_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'confirmed' AND checked_in = FALSE
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to check in booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish already-checked-in from missing.
		var checkedIn bool
		err := r.pool.QueryRow(ctx, `SELECT checked_in FROM bookings WHERE id = $1`, id).Scan(&checkedIn)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return domain.ErrBookingNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check booking state: %w", err)
		}
		if checkedIn {
			span.SetStatus(codes.Error, "already checked in")
			return domain.ErrAlreadyCheckedIn
		}
		span.SetStatus(codes.Error, "not confirmed")
		return domain.ErrNoConfirmedBooking
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// RecordFeedback stamps feedback submission on a booking
func (r *PostgresBookingRepository) RecordFeedback(ctx context.Context, id string, at time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.record_feedback")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `
		UPDATE bookings SET
			feedback_submitted_at = $2,
			updated_at = $2
		WHERE id = $1 AND feedback_submitted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check booking existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrBookingNotFound
		}
		span.SetStatus(codes.Error, "feedback exists")
		return domain.ErrFeedbackAlreadyExists
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// NoShowCandidates returns confirmed, never-checked-in bookings whose event
// ended before the cutoff
func (r *PostgresBookingRepository) NoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.no_show_candidates")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + qualifiedBookingColumns("b") + `
		FROM bookings b
		JOIN events e ON b.event_id = e.id
		WHERE b.status = 'confirmed'
			AND b.checked_in = FALSE
			AND e.end_time < $1
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get no-show candidates: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// MarkNoShow transitions a confirmed booking to no_show
func (r *PostgresBookingRepository) MarkNoShow(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.mark_no_show")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `
		UPDATE bookings SET
			status = 'no_show',
			status_reason = 'No check-in recorded before event end',
			updated_at = $2
		WHERE id = $1 AND status = 'confirmed' AND checked_in = FALSE
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to mark booking as no-show: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not eligible")
		return domain.ErrInvalidTransition
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CertificateCandidates returns attended bookings awaiting certificate issue
func (r *PostgresBookingRepository) CertificateCandidates(ctx context.Context, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.certificate_candidates")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + qualifiedBookingColumns("b") + `
		FROM bookings b
		JOIN events e ON b.event_id = e.id
		WHERE b.status = 'attended'
			AND b.certificate_generated = FALSE
			AND e.auto_generate_certificate = TRUE
			AND (e.feedback_required_for_certificate = FALSE OR b.feedback_submitted_at IS NOT NULL)
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get certificate candidates: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// DeleteCancelled deletes a booking only when it is cancelled
func (r *PostgresBookingRepository) DeleteCancelled(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.delete_cancelled")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	result, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1 AND status = 'cancelled'`, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check booking existence: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrBookingNotFound
		}
		span.SetStatus(codes.Error, "not cancelled")
		return domain.ErrBookingNotCancelled
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBookingRow scans a single row into a Booking struct
func scanBookingRow(row rowScanner) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		status              string
		statusReason        *string
		cancellationReason  *string
		checkedInAt         *time.Time
		feedbackSubmittedAt *time.Time
		idempotencyKey      *string
		cancelledAt         *time.Time
		promotedAt          *time.Time
	)

	err := row.Scan(
		&booking.ID,
		&booking.EventID,
		&booking.UserID,
		&status,
		&statusReason,
		&cancellationReason,
		&booking.Checkbox1Accepted,
		&booking.Checkbox2Accepted,
		&booking.CheckedIn,
		&checkedInAt,
		&booking.CertificateGenerated,
		&booking.CertificateEmailSent,
		&feedbackSubmittedAt,
		&idempotencyKey,
		&booking.BookedAt,
		&cancelledAt,
		&promotedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatus(status)
	if statusReason != nil {
		booking.StatusReason = *statusReason
	}
	if cancellationReason != nil {
		booking.CancellationReason = *cancellationReason
	}
	booking.CheckedInAt = checkedInAt
	booking.FeedbackSubmittedAt = feedbackSubmittedAt
	if idempotencyKey != nil {
		booking.IdempotencyKey = *idempotencyKey
	}
	booking.CancelledAt = cancelledAt
	booking.PromotedAt = promotedAt

	return booking, nil
}

// collectBookings drains rows into a slice
func collectBookings(rows pgx.Rows) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBookingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

// qualifiedBookingColumns prefixes the booking column list with a table alias
func qualifiedBookingColumns(alias string) string {
	return alias + `.id, ` + alias + `.event_id, ` + alias + `.user_id, ` + alias + `.status, ` +
		alias + `.status_reason, ` + alias + `.cancellation_reason, ` +
		alias + `.checkbox_1_accepted, ` + alias + `.checkbox_2_accepted, ` +
		alias + `.checked_in, ` + alias + `.checked_in_at, ` +
		alias + `.certificate_generated, ` + alias + `.certificate_email_sent, ` + alias + `.feedback_submitted_at, ` +
		alias + `.idempotency_key, ` + alias + `.booked_at, ` + alias + `.cancelled_at, ` + alias + `.promoted_at, ` +
		alias + `.created_at, ` + alias + `.updated_at`
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresBookingRepository implements BookingRepository
var _ BookingRepository = (*PostgresBookingRepository)(nil)
