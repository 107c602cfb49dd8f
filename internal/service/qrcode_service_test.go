package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
)

func TestQRCodeService_Generate(t *testing.T) {
	windowStart := time.Now().Add(time.Hour)
	windowEnd := windowStart.Add(2 * time.Hour)

	t.Run("creates a fresh artifact", func(t *testing.T) {
		eventRepo := &MockEventRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
				return openEvent(), nil
			},
		}
		var replaced *domain.QRCode
		qrRepo := &MockQRCodeRepository{
			ReplaceFunc: func(ctx context.Context, qr *domain.QRCode) error {
				replaced = qr
				return nil
			},
		}

		svc := NewQRCodeService(qrRepo, eventRepo)

		resp, err := svc.Generate(context.Background(), "event-001", &dto.GenerateQRCodeRequest{
			ScanWindowStart: windowStart,
			ScanWindowEnd:   windowEnd,
		})
		if err != nil {
			t.Fatalf("Generate() unexpected error = %v", err)
		}
		if replaced == nil {
			t.Fatal("Generate() did not reach Replace")
		}
		if resp.Token == "" || resp.Token != replaced.Token {
			t.Errorf("Generate() token = %q", resp.Token)
		}
		if !resp.Active {
			t.Error("Generate() artifact not active")
		}
	})

	t.Run("regenerate rotates the token", func(t *testing.T) {
		eventRepo := &MockEventRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
				return openEvent(), nil
			},
		}
		svc := NewQRCodeService(&MockQRCodeRepository{}, eventRepo)

		req := &dto.GenerateQRCodeRequest{ScanWindowStart: windowStart, ScanWindowEnd: windowEnd}
		first, err := svc.Generate(context.Background(), "event-001", req)
		if err != nil {
			t.Fatalf("Generate() unexpected error = %v", err)
		}
		second, err := svc.Generate(context.Background(), "event-001", req)
		if err != nil {
			t.Fatalf("Generate() unexpected error = %v", err)
		}
		if first.Token == second.Token {
			t.Error("Generate() regeneration reused the token")
		}
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		svc := NewQRCodeService(&MockQRCodeRepository{}, &MockEventRepository{})

		_, err := svc.Generate(context.Background(), "event-001", &dto.GenerateQRCodeRequest{
			ScanWindowStart: windowEnd,
			ScanWindowEnd:   windowStart,
		})
		if !errors.Is(err, domain.ErrInvalidScanWindow) {
			t.Errorf("Generate() error = %v, want ErrInvalidScanWindow", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		svc := NewQRCodeService(&MockQRCodeRepository{}, &MockEventRepository{})

		_, err := svc.Generate(context.Background(), "no-such-event", &dto.GenerateQRCodeRequest{
			ScanWindowStart: windowStart,
			ScanWindowEnd:   windowEnd,
		})
		if !errors.Is(err, domain.ErrEventNotFound) {
			t.Errorf("Generate() error = %v, want ErrEventNotFound", err)
		}
	})
}

func TestQRCodeService_GetStatus(t *testing.T) {
	qrRepo := &MockQRCodeRepository{
		GetActiveByEventFunc: func(ctx context.Context, eventID string) (*domain.QRCode, error) {
			return activeQRCode(), nil
		},
	}

	svc := NewQRCodeService(qrRepo, &MockEventRepository{})

	resp, err := svc.GetStatus(context.Background(), "event-001")
	if err != nil {
		t.Fatalf("GetStatus() unexpected error = %v", err)
	}
	if resp.Token != "token-abc" || !resp.Active {
		t.Errorf("GetStatus() = %+v", resp)
	}
}

func TestQRCodeService_Deactivate(t *testing.T) {
	var deactivated string
	qrRepo := &MockQRCodeRepository{
		DeactivateFunc: func(ctx context.Context, eventID string) error {
			deactivated = eventID
			return nil
		},
	}

	svc := NewQRCodeService(qrRepo, &MockEventRepository{})

	if err := svc.Deactivate(context.Background(), "event-001"); err != nil {
		t.Fatalf("Deactivate() unexpected error = %v", err)
	}
	if deactivated != "event-001" {
		t.Errorf("Deactivate() event = %s", deactivated)
	}
}

func TestQRCodeService_ImagePNG(t *testing.T) {
	pngMagic := []byte{0x89, 0x50, 0x4E, 0x47}

	qrRepo := &MockQRCodeRepository{
		GetActiveByEventFunc: func(ctx context.Context, eventID string) (*domain.QRCode, error) {
			return activeQRCode(), nil
		},
	}

	svc := NewQRCodeService(qrRepo, &MockEventRepository{})

	png, err := svc.ImagePNG(context.Background(), "event-001", 256)
	if err != nil {
		t.Fatalf("ImagePNG() unexpected error = %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("ImagePNG() output is not a PNG")
	}

	t.Run("no active artifact", func(t *testing.T) {
		svc := NewQRCodeService(&MockQRCodeRepository{}, &MockEventRepository{})

		_, err := svc.ImagePNG(context.Background(), "event-001", 256)
		if !errors.Is(err, domain.ErrQRCodeNotFound) {
			t.Errorf("ImagePNG() error = %v, want ErrQRCodeNotFound", err)
		}
	})
}
