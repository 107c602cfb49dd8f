package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const qrCodeColumns = `
	id, event_id, token, scan_window_start, scan_window_end, active,
	created_at, updated_at
`

// PostgresQRCodeRepository implements QRCodeRepository using PostgreSQL
type PostgresQRCodeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQRCodeRepository creates a new PostgresQRCodeRepository
func NewPostgresQRCodeRepository(pool *pgxpool.Pool) *PostgresQRCodeRepository {
	return &PostgresQRCodeRepository{pool: pool}
}

// Replace deactivates any existing artifact for the event and inserts the
// new one in a single transaction. Old tokens stop scanning immediately.
func (r *PostgresQRCodeRepository) Replace(ctx context.Context, qr *domain.QRCode) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.qrcode.replace")
	defer span.End()

	span.SetAttributes(
		attribute.String("qr_code_id", qr.ID),
		attribute.String("event_id", qr.EventID),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE qr_codes SET active = FALSE, updated_at = $2
		WHERE event_id = $1 AND active = TRUE
	`, qr.EventID, qr.UpdatedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to deactivate old qr codes: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO qr_codes (
			id, event_id, token, scan_window_start, scan_window_end, active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		qr.ID,
		qr.EventID,
		qr.Token,
		qr.ScanWindowStart,
		qr.ScanWindowEnd,
		qr.Active,
		qr.CreatedAt,
		qr.UpdatedAt,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert qr code: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetActiveByEvent retrieves the event's active artifact
func (r *PostgresQRCodeRepository) GetActiveByEvent(ctx context.Context, eventID string) (*domain.QRCode, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.qrcode.get_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	query := `SELECT ` + qrCodeColumns + ` FROM qr_codes WHERE event_id = $1 AND active = TRUE`

	qr, err := scanQRCode(r.pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrQRCodeNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get qr code: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return qr, nil
}

// GetActiveByToken retrieves an active artifact by scan token
func (r *PostgresQRCodeRepository) GetActiveByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.qrcode.get_by_token")
	defer span.End()

	query := `SELECT ` + qrCodeColumns + ` FROM qr_codes WHERE token = $1 AND active = TRUE`

	qr, err := scanQRCode(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrQRCodeNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get qr code by token: %w", err)
	}

	span.SetAttributes(attribute.String("event_id", qr.EventID))
	span.SetStatus(codes.Ok, "")
	return qr, nil
}

// Deactivate retires the event's active artifact
func (r *PostgresQRCodeRepository) Deactivate(ctx context.Context, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.qrcode.deactivate")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := r.pool.Exec(ctx, `
		UPDATE qr_codes SET active = FALSE, updated_at = NOW()
		WHERE event_id = $1 AND active = TRUE
	`, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to deactivate qr code: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrQRCodeNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// scanQRCode scans a row into a QRCode struct
func scanQRCode(row rowScanner) (*domain.QRCode, error) {
	qr := &domain.QRCode{}
	err := row.Scan(
		&qr.ID,
		&qr.EventID,
		&qr.Token,
		&qr.ScanWindowStart,
		&qr.ScanWindowEnd,
		&qr.Active,
		&qr.CreatedAt,
		&qr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return qr, nil
}

// Ensure PostgresQRCodeRepository implements QRCodeRepository
var _ QRCodeRepository = (*PostgresQRCodeRepository)(nil)
