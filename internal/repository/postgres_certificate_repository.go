package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresCertificateRepository implements CertificateRepository using PostgreSQL
type PostgresCertificateRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCertificateRepository creates a new PostgresCertificateRepository
func NewPostgresCertificateRepository(pool *pgxpool.Pool) *PostgresCertificateRepository {
	return &PostgresCertificateRepository{pool: pool}
}

// Issue inserts the certificate and stamps the booking's certificate flags
// in a single transaction so a crash cannot leave a certificate without its
// booking marker or vice versa.
func (r *PostgresCertificateRepository) Issue(ctx context.Context, cert *domain.Certificate, emailSent bool) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.certificate.issue")
	defer span.End()

	span.SetAttributes(
		attribute.String("certificate_id", cert.ID),
		attribute.String("booking_id", cert.BookingID),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO certificates (id, booking_id, event_id, user_id, issued_at, email_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		cert.ID,
		cert.BookingID,
		cert.EventID,
		cert.UserID,
		cert.IssuedAt,
		emailSent,
		cert.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			span.SetStatus(codes.Error, "already issued")
			return domain.ErrCertificateNotEligible
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert certificate: %w", err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE bookings SET
			certificate_generated = TRUE,
			certificate_email_sent = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'attended' AND certificate_generated = FALSE
	`, cert.BookingID, emailSent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to stamp booking certificate flags: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not eligible")
		return domain.ErrCertificateNotEligible
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresCertificateRepository implements CertificateRepository
var _ CertificateRepository = (*PostgresCertificateRepository)(nil)
