package service

import (
	"context"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/repository"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// QRCodeService defines the interface for managing per-event QR artifacts
type QRCodeService interface {
	// Generate creates a fresh artifact for the event, replacing any
	// existing one. Regeneration is the same operation, the old token
	// stops scanning the moment the new row lands.
	Generate(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error)

	// GetStatus retrieves the event's active artifact
	GetStatus(ctx context.Context, eventID string) (*dto.QRCodeResponse, error)

	// Deactivate retires the event's active artifact
	Deactivate(ctx context.Context, eventID string) error

	// ImagePNG renders the active token as a PNG of the given pixel size
	ImagePNG(ctx context.Context, eventID string, size int) ([]byte, error)
}

// qrCodeService implements QRCodeService
type qrCodeService struct {
	qrRepo    repository.QRCodeRepository
	eventRepo repository.EventRepository
}

// NewQRCodeService creates a new QR code service
func NewQRCodeService(qrRepo repository.QRCodeRepository, eventRepo repository.EventRepository) QRCodeService {
	return &qrCodeService{
		qrRepo:    qrRepo,
		eventRepo: eventRepo,
	}
}

// Generate creates a fresh artifact for the event, replacing any existing one
func (s *qrCodeService) Generate(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.qrcode.generate")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req == nil || !req.ScanWindowEnd.After(req.ScanWindowStart) {
		span.SetStatus(codes.Error, "invalid scan window")
		return nil, domain.ErrInvalidScanWindow
	}

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	token, err := domain.NewQRToken()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now()
	qr := &domain.QRCode{
		ID:              uuid.New().String(),
		EventID:         eventID,
		Token:           token,
		ScanWindowStart: req.ScanWindowStart,
		ScanWindowEnd:   req.ScanWindowEnd,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.qrRepo.Replace(ctx, qr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("qr_code_id", qr.ID))
	span.SetStatus(codes.Ok, "")
	return fromDomainQRCode(qr), nil
}

// GetStatus retrieves the event's active artifact
func (s *qrCodeService) GetStatus(ctx context.Context, eventID string) (*dto.QRCodeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.qrcode.get_status")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	qr, err := s.qrRepo.GetActiveByEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return fromDomainQRCode(qr), nil
}

// Deactivate retires the event's active artifact
func (s *qrCodeService) Deactivate(ctx context.Context, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.qrcode.deactivate")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return domain.ErrInvalidEventID
	}

	if err := s.qrRepo.Deactivate(ctx, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ImagePNG renders the active token as a PNG of the given pixel size
func (s *qrCodeService) ImagePNG(ctx context.Context, eventID string, size int) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.qrcode.image")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if size <= 0 || size > 2048 {
		size = 512
	}

	qr, err := s.qrRepo.GetActiveByEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	png, err := qrcode.Encode(qr.Token, qrcode.Medium, size)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("size_px", size))
	span.SetStatus(codes.Ok, "")
	return png, nil
}

func fromDomainQRCode(qr *domain.QRCode) *dto.QRCodeResponse {
	return &dto.QRCodeResponse{
		ID:              qr.ID,
		EventID:         qr.EventID,
		Token:           qr.Token,
		ScanWindowStart: qr.ScanWindowStart,
		ScanWindowEnd:   qr.ScanWindowEnd,
		Active:          qr.Active,
		CreatedAt:       qr.CreatedAt,
	}
}

// Ensure qrCodeService implements QRCodeService
var _ QRCodeService = (*qrCodeService)(nil)
