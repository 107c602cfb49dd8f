package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
)

// MockQRCodeService is a mock implementation of QRCodeService for testing
type MockQRCodeService struct {
	GenerateFunc   func(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error)
	GetStatusFunc  func(ctx context.Context, eventID string) (*dto.QRCodeResponse, error)
	DeactivateFunc func(ctx context.Context, eventID string) error
	ImagePNGFunc   func(ctx context.Context, eventID string, size int) ([]byte, error)
}

func (m *MockQRCodeService) Generate(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, eventID, req)
	}
	return nil, nil
}

func (m *MockQRCodeService) GetStatus(ctx context.Context, eventID string) (*dto.QRCodeResponse, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *MockQRCodeService) Deactivate(ctx context.Context, eventID string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, eventID)
	}
	return nil
}

func (m *MockQRCodeService) ImagePNG(ctx context.Context, eventID string, size int) ([]byte, error) {
	if m.ImagePNGFunc != nil {
		return m.ImagePNGFunc(ctx, eventID, size)
	}
	return nil, nil
}

func setupAdminRouter(handler *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	admin := router.Group("/admin")
	{
		admin.POST("/events/:eventId/qr-code", handler.GenerateQRCode)
		admin.PUT("/events/:eventId/qr-code", handler.GenerateQRCode)
		admin.GET("/events/:eventId/qr-code", handler.GetQRCodeStatus)
		admin.DELETE("/events/:eventId/qr-code", handler.DeactivateQRCode)
		admin.GET("/events/:eventId/qr-code/image", handler.QRCodeImage)
		admin.PUT("/bookings/:id/status", handler.UpdateBookingStatus)
		admin.DELETE("/bookings/:id", handler.DeleteBooking)
		admin.POST("/events/:eventId/promote", handler.PromoteWaitlist)
		admin.GET("/events/:eventId/bookings", handler.ListEventBookings)
		admin.GET("/events/:eventId/bookings/export", handler.ExportEventBookings)
	}

	return router
}

func TestAdminHandler_GenerateQRCode(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name           string
		method         string
		request        *dto.GenerateQRCodeRequest
		mockFunc       func(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "generate returns created",
			method: http.MethodPost,
			request: &dto.GenerateQRCodeRequest{
				ScanWindowStart: now,
				ScanWindowEnd:   now.Add(2 * time.Hour),
			},
			mockFunc: func(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error) {
				return &dto.QRCodeResponse{
					ID:      "qr-123",
					EventID: eventID,
					Token:   "token-abc",
					Active:  true,
				}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "regenerate returns ok",
			method: http.MethodPut,
			request: &dto.GenerateQRCodeRequest{
				ScanWindowStart: now,
				ScanWindowEnd:   now.Add(2 * time.Hour),
			},
			mockFunc: func(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error) {
				return &dto.QRCodeResponse{ID: "qr-456", EventID: eventID, Token: "token-def", Active: true}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "event not found",
			method: http.MethodPost,
			request: &dto.GenerateQRCodeRequest{
				ScanWindowStart: now,
				ScanWindowEnd:   now.Add(2 * time.Hour),
			},
			mockFunc: func(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error) {
				return nil, domain.ErrEventNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "EVENT_NOT_FOUND",
		},
		{
			name:   "inverted scan window",
			method: http.MethodPost,
			request: &dto.GenerateQRCodeRequest{
				ScanWindowStart: now.Add(2 * time.Hour),
				ScanWindowEnd:   now,
			},
			mockFunc: func(ctx context.Context, eventID string, req *dto.GenerateQRCodeRequest) (*dto.QRCodeResponse, error) {
				return nil, domain.ErrInvalidScanWindow
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAdminHandler(&MockBookingService{}, &MockQRCodeService{
				GenerateFunc: tt.mockFunc,
			})
			router := setupAdminRouter(handler)

			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(tt.method, "/admin/events/event-123/qr-code", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedCode != "" {
				var response dto.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err == nil {
					if response.Code != tt.expectedCode {
						t.Errorf("expected code %s, got %s", tt.expectedCode, response.Code)
					}
				}
			}
		})
	}
}

func TestAdminHandler_QRCodeImage(t *testing.T) {
	t.Run("serves png with clamped size", func(t *testing.T) {
		png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
		var gotSize int
		handler := NewAdminHandler(&MockBookingService{}, &MockQRCodeService{
			ImagePNGFunc: func(ctx context.Context, eventID string, size int) ([]byte, error) {
				gotSize = size
				return png, nil
			},
		})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodGet, "/admin/events/event-123/qr-code/image?size=256", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("expected content type image/png, got %s", ct)
		}
		if gotSize != 256 {
			t.Errorf("expected size 256, got %d", gotSize)
		}
		if !bytes.Equal(w.Body.Bytes(), png) {
			t.Errorf("response body does not match PNG payload")
		}
	})

	t.Run("oversized request falls back to default", func(t *testing.T) {
		var gotSize int
		handler := NewAdminHandler(&MockBookingService{}, &MockQRCodeService{
			ImagePNGFunc: func(ctx context.Context, eventID string, size int) ([]byte, error) {
				gotSize = size
				return []byte{0x89, 0x50, 0x4E, 0x47}, nil
			},
		})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodGet, "/admin/events/event-123/qr-code/image?size=9000", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if gotSize != 512 {
			t.Errorf("expected default size 512, got %d", gotSize)
		}
	})

	t.Run("no active artifact", func(t *testing.T) {
		handler := NewAdminHandler(&MockBookingService{}, &MockQRCodeService{
			ImagePNGFunc: func(ctx context.Context, eventID string, size int) ([]byte, error) {
				return nil, domain.ErrQRCodeNotFound
			},
		})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodGet, "/admin/events/event-123/qr-code/image", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestAdminHandler_UpdateBookingStatus(t *testing.T) {
	tests := []struct {
		name           string
		request        *dto.AdminStatusRequest
		mockFunc       func(ctx context.Context, bookingID string, req *dto.AdminStatusRequest) (*dto.BookingResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:    "forced transition",
			request: &dto.AdminStatusRequest{Status: "confirmed", StatusReason: "manual approval"},
			mockFunc: func(ctx context.Context, bookingID string, req *dto.AdminStatusRequest) (*dto.BookingResponse, error) {
				return &dto.BookingResponse{ID: bookingID, Status: req.Status}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "unknown status rejected",
			request: &dto.AdminStatusRequest{Status: "refunded"},
			mockFunc: func(ctx context.Context, bookingID string, req *dto.AdminStatusRequest) (*dto.BookingResponse, error) {
				return nil, domain.ErrInvalidBookingStatus
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:    "booking not found",
			request: &dto.AdminStatusRequest{Status: "confirmed"},
			mockFunc: func(ctx context.Context, bookingID string, req *dto.AdminStatusRequest) (*dto.BookingResponse, error) {
				return nil, domain.ErrBookingNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "BOOKING_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAdminHandler(&MockBookingService{
				AdminUpdateStatusFunc: tt.mockFunc,
			}, &MockQRCodeService{})
			router := setupAdminRouter(handler)

			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPut, "/admin/bookings/booking-123/status", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			if tt.expectedCode != "" {
				var response dto.ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &response); err == nil {
					if response.Code != tt.expectedCode {
						t.Errorf("expected code %s, got %s", tt.expectedCode, response.Code)
					}
				}
			}
		})
	}
}

func TestAdminHandler_PromoteWaitlist(t *testing.T) {
	t.Run("promotes and reports count", func(t *testing.T) {
		handler := NewAdminHandler(&MockBookingService{
			PromoteWaitlistFunc: func(ctx context.Context, eventID string, limit int) (*dto.PromoteResponse, error) {
				return &dto.PromoteResponse{
					EventID:       eventID,
					PromotedCount: 2,
					BookingIDs:    []string{"booking-1", "booking-2"},
				}, nil
			},
		}, &MockQRCodeService{})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodPost, "/admin/events/event-123/promote", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response dto.PromoteResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.PromotedCount != 2 {
			t.Errorf("expected promoted count 2, got %d", response.PromotedCount)
		}
	})

	t.Run("empty waitlist", func(t *testing.T) {
		handler := NewAdminHandler(&MockBookingService{
			PromoteWaitlistFunc: func(ctx context.Context, eventID string, limit int) (*dto.PromoteResponse, error) {
				return nil, domain.ErrWaitlistEmpty
			},
		}, &MockQRCodeService{})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodPost, "/admin/events/event-123/promote", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})
}

func TestAdminHandler_DeleteBooking(t *testing.T) {
	t.Run("deletes cancelled booking", func(t *testing.T) {
		var gotID string
		handler := NewAdminHandler(&MockBookingService{
			DeleteCancelledBookingFunc: func(ctx context.Context, bookingID string) error {
				gotID = bookingID
				return nil
			},
		}, &MockQRCodeService{})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodDelete, "/admin/bookings/booking-123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if gotID != "booking-123" {
			t.Errorf("expected booking-123, got %s", gotID)
		}
	})

	t.Run("non-cancelled booking rejected", func(t *testing.T) {
		handler := NewAdminHandler(&MockBookingService{
			DeleteCancelledBookingFunc: func(ctx context.Context, bookingID string) error {
				return domain.ErrBookingNotCancelled
			},
		}, &MockQRCodeService{})
		router := setupAdminRouter(handler)

		req := httptest.NewRequest(http.MethodDelete, "/admin/bookings/booking-123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})
}

func TestAdminHandler_ExportEventBookings(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	checkedIn := now.Add(15 * time.Minute)

	handler := NewAdminHandler(&MockBookingService{
		ListEventBookingsFunc: func(ctx context.Context, eventID string) ([]*dto.BookingResponse, error) {
			return []*dto.BookingResponse{
				{
					ID:          "booking-1",
					UserID:      "user-1",
					Status:      "attended",
					BookedAt:    now,
					CheckedIn:   true,
					CheckedInAt: &checkedIn,
				},
				{
					ID:                 "booking-2",
					UserID:             "user-2",
					Status:             "cancelled",
					BookedAt:           now,
					CancellationReason: "schedule conflict",
				},
			}, nil
		},
	}, &MockQRCodeService{})
	router := setupAdminRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/admin/events/event-123/bookings/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected content type text/csv, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %s", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if records[0][0] != "booking_id" {
		t.Errorf("expected booking_id header, got %s", records[0][0])
	}
	if records[1][2] != "attended" {
		t.Errorf("expected attended status in first row, got %s", records[1][2])
	}
	if records[2][6] != "schedule conflict" {
		t.Errorf("expected cancellation reason in second row, got %s", records[2][6])
	}
}
