package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// GetByID retrieves an event by its ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		SELECT
			id, title, description, location, start_time, end_time,
			booking_enabled, booking_capacity, allow_waitlist, requires_approval,
			checkbox_1_text, checkbox_1_required, checkbox_2_text, checkbox_2_required,
			qr_attendance_enabled, auto_generate_certificate, feedback_required_for_certificate,
			created_at, updated_at
		FROM events
		WHERE id = $1
	`

	event := &domain.Event{}
	var (
		description   *string
		location      *string
		endTime       *time.Time
		capacity      *int
		checkbox1Text *string
		checkbox2Text *string
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&description,
		&location,
		&event.StartTime,
		&endTime,
		&event.BookingEnabled,
		&capacity,
		&event.AllowWaitlist,
		&event.RequiresApproval,
		&checkbox1Text,
		&event.Checkbox1Required,
		&checkbox2Text,
		&event.Checkbox2Required,
		&event.QRAttendanceEnabled,
		&event.AutoGenerateCertificate,
		&event.FeedbackRequiredForCertificate,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if description != nil {
		event.Description = *description
	}
	if location != nil {
		event.Location = *location
	}
	if endTime != nil {
		event.EndTime = *endTime
	}
	event.BookingCapacity = capacity
	if checkbox1Text != nil {
		event.Checkbox1Text = *checkbox1Text
	}
	if checkbox2Text != nil {
		event.Checkbox2Text = *checkbox2Text
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// Ensure PostgresEventRepository implements EventRepository
var _ EventRepository = (*PostgresEventRepository)(nil)
