package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
)

func activeQRCode() *domain.QRCode {
	return &domain.QRCode{
		ID:              "qr-001",
		EventID:         "event-001",
		Token:           "token-abc",
		ScanWindowStart: time.Now().Add(-time.Hour),
		ScanWindowEnd:   time.Now().Add(time.Hour),
		Active:          true,
	}
}

func TestAttendanceService_Scan(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		req        *dto.ScanRequest
		setupMocks func(*MockBookingRepository, *MockEventRepository, *MockQRCodeRepository, *MockScanGuard)
		wantErr    error
	}{
		{
			name:   "successful check-in",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				qr.GetActiveByTokenFunc = func(ctx context.Context, token string) (*domain.QRCode, error) {
					return activeQRCode(), nil
				}
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return openEvent(), nil
				}
				br.GetActiveByEventAndUserFunc = func(ctx context.Context, eventID, userID string) (*domain.Booking, error) {
					return &domain.Booking{
						ID:      "booking-123",
						EventID: eventID,
						UserID:  userID,
						Status:  domain.BookingStatusConfirmed,
					}, nil
				}
			},
		},
		{
			name:   "duplicate scan suppressed",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				sg.AcquireFunc = func(ctx context.Context, payload string, window time.Duration) (bool, error) {
					return false, nil
				}
			},
			wantErr: domain.ErrDuplicateScan,
		},
		{
			name:    "unknown token",
			userID:  "user-001",
			req:     &dto.ScanRequest{QRCodeData: "bogus", EventID: "event-001"},
			wantErr: domain.ErrQRCodeNotFound,
		},
		{
			name:   "token for a different event",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-999"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				qr.GetActiveByTokenFunc = func(ctx context.Context, token string) (*domain.QRCode, error) {
					return activeQRCode(), nil
				}
			},
			wantErr: domain.ErrQRCodeNotFound,
		},
		{
			name:   "scan outside window",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				qr.GetActiveByTokenFunc = func(ctx context.Context, token string) (*domain.QRCode, error) {
					code := activeQRCode()
					code.ScanWindowStart = time.Now().Add(time.Hour)
					code.ScanWindowEnd = time.Now().Add(2 * time.Hour)
					return code, nil
				}
			},
			wantErr: domain.ErrOutsideScanWindow,
		},
		{
			name:   "qr attendance disabled on event",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				qr.GetActiveByTokenFunc = func(ctx context.Context, token string) (*domain.QRCode, error) {
					return activeQRCode(), nil
				}
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					ev := openEvent()
					ev.QRAttendanceEnabled = false
					return ev, nil
				}
			},
			wantErr: domain.ErrQRAttendanceDisabled,
		},
		{
			name:   "no confirmed booking",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				qr.GetActiveByTokenFunc = func(ctx context.Context, token string) (*domain.QRCode, error) {
					return activeQRCode(), nil
				}
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return openEvent(), nil
				}
			},
			wantErr: domain.ErrNoConfirmedBooking,
		},
		{
			name:   "already checked in",
			userID: "user-001",
			req:    &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			setupMocks: func(br *MockBookingRepository, er *MockEventRepository, qr *MockQRCodeRepository, sg *MockScanGuard) {
				qr.GetActiveByTokenFunc = func(ctx context.Context, token string) (*domain.QRCode, error) {
					return activeQRCode(), nil
				}
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return openEvent(), nil
				}
				br.GetActiveByEventAndUserFunc = func(ctx context.Context, eventID, userID string) (*domain.Booking, error) {
					return &domain.Booking{
						ID:        "booking-123",
						EventID:   eventID,
						UserID:    userID,
						Status:    domain.BookingStatusAttended,
						CheckedIn: true,
					}, nil
				}
				br.CheckInFunc = func(ctx context.Context, id string, at time.Time) error {
					return domain.ErrAlreadyCheckedIn
				}
			},
			wantErr: domain.ErrAlreadyCheckedIn,
		},
		{
			name:    "missing payload",
			userID:  "user-001",
			req:     &dto.ScanRequest{EventID: "event-001"},
			wantErr: domain.ErrQRCodeNotFound,
		},
		{
			name:    "missing user",
			userID:  "",
			req:     &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-001"},
			wantErr: domain.ErrInvalidUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookingRepo := &MockBookingRepository{}
			eventRepo := &MockEventRepository{}
			qrRepo := &MockQRCodeRepository{}
			guard := &MockScanGuard{}
			if tt.setupMocks != nil {
				tt.setupMocks(bookingRepo, eventRepo, qrRepo, guard)
			}

			svc := NewAttendanceService(bookingRepo, eventRepo, qrRepo, guard, nil, &AttendanceServiceConfig{
				ScanDedupeWindow: 3 * time.Second,
			})

			resp, err := svc.Scan(context.Background(), tt.userID, tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Scan() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("Scan() unexpected error = %v", err)
				return
			}

			if resp.Details.EventTitle == "" {
				t.Error("Scan() missing event title in details")
			}
			if resp.Details.CheckedInAt.IsZero() {
				t.Error("Scan() missing checked_in_at in details")
			}
			if !resp.Details.FeedbackEmailSent {
				t.Error("Scan() feedback_email_sent = false, want true with a healthy publisher")
			}
		})
	}
}

func TestAttendanceService_Scan_GuardPayloadIncludesUser(t *testing.T) {
	var gotPayload string
	guard := &MockScanGuard{
		AcquireFunc: func(ctx context.Context, payload string, window time.Duration) (bool, error) {
			gotPayload = payload
			return false, nil
		},
	}

	svc := NewAttendanceService(&MockBookingRepository{}, &MockEventRepository{}, &MockQRCodeRepository{}, guard, nil, nil)

	_, err := svc.Scan(context.Background(), "user-001", &dto.ScanRequest{
		QRCodeData: "token-abc",
		EventID:    "event-001",
	})
	if !errors.Is(err, domain.ErrDuplicateScan) {
		t.Fatalf("Scan() error = %v, want ErrDuplicateScan", err)
	}
	if gotPayload != "user-001:token-abc" {
		t.Errorf("Scan() guard payload = %s", gotPayload)
	}
}
