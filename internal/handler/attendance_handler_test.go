package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/dto"
)

// MockAttendanceService is a mock implementation of AttendanceService for testing
type MockAttendanceService struct {
	ScanFunc func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error)
}

func (m *MockAttendanceService) Scan(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, userID, req)
	}
	return nil, nil
}

func setupAttendanceRouter(handler *AttendanceHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}

	router.POST("/qr-codes/scan", handler.Scan)
	return router
}

func TestAttendanceHandler_Scan(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		request        *dto.ScanRequest
		mockFunc       func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "successful scan",
			userID: "user-123",
			request: &dto.ScanRequest{
				QRCodeData: "token-abc",
				EventID:    "event-123",
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
				return &dto.ScanResponse{
					Message: "Attendance recorded",
					Details: dto.ScanDetails{
						EventTitle:        "Airway Workshop",
						EventDate:         time.Now(),
						CheckedInAt:       time.Now(),
						FeedbackEmailSent: true,
					},
				}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unauthorized - no user_id",
			userID:         "",
			request:        &dto.ScanRequest{QRCodeData: "token-abc", EventID: "event-123"},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:   "unknown token",
			userID: "user-123",
			request: &dto.ScanRequest{
				QRCodeData: "stale-token",
				EventID:    "event-123",
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
				return nil, domain.ErrQRCodeNotFound
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "QR_CODE_NOT_FOUND",
		},
		{
			name:   "outside scan window",
			userID: "user-123",
			request: &dto.ScanRequest{
				QRCodeData: "token-abc",
				EventID:    "event-123",
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
				return nil, domain.ErrOutsideScanWindow
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "OUTSIDE_SCAN_WINDOW",
		},
		{
			name:   "no confirmed booking",
			userID: "user-123",
			request: &dto.ScanRequest{
				QRCodeData: "token-abc",
				EventID:    "event-123",
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
				return nil, domain.ErrNoConfirmedBooking
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NO_CONFIRMED_BOOKING",
		},
		{
			name:   "already checked in",
			userID: "user-123",
			request: &dto.ScanRequest{
				QRCodeData: "token-abc",
				EventID:    "event-123",
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
				return nil, domain.ErrAlreadyCheckedIn
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "ALREADY_CHECKED_IN",
		},
		{
			name:   "duplicate scan suppressed",
			userID: "user-123",
			request: &dto.ScanRequest{
				QRCodeData: "token-abc",
				EventID:    "event-123",
			},
			mockFunc: func(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.ScanResponse, error) {
				return nil, domain.ErrDuplicateScan
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "DUPLICATE_SCAN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockAttendanceService{
				ScanFunc: tt.mockFunc,
			}
			handler := NewAttendanceHandler(mockService)
			router := setupAttendanceRouter(handler, tt.userID)

			body, _ := json.Marshal(tt.request)
			req := httptest.NewRequest(http.MethodPost, "/qr-codes/scan", bytes.NewBuffer(body))
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

func TestAttendanceHandler_Scan_MissingBody(t *testing.T) {
	handler := NewAttendanceHandler(&MockAttendanceService{})
	router := setupAttendanceRouter(handler, "user-123")

	req := httptest.NewRequest(http.MethodPost, "/qr-codes/scan", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
