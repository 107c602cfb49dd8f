package dto

import "time"

// GenerateQRCodeRequest creates or regenerates an event's QR artifact
type GenerateQRCodeRequest struct {
	ScanWindowStart time.Time `json:"scan_window_start" binding:"required"`
	ScanWindowEnd   time.Time `json:"scan_window_end" binding:"required"`
}

// QRCodeResponse represents a QR artifact in admin responses.
// The raw token is only returned to admins; scanners submit it back
// as qr_code_data.
type QRCodeResponse struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Token           string    `json:"token"`
	ScanWindowStart time.Time `json:"scan_window_start"`
	ScanWindowEnd   time.Time `json:"scan_window_end"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// AdminStatusRequest forces a booking status transition
type AdminStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	StatusReason string `json:"status_reason,omitempty"`
}

// PromoteResponse reports the outcome of a manual waitlist promotion run
type PromoteResponse struct {
	EventID       string   `json:"event_id"`
	PromotedCount int      `json:"promoted_count"`
	BookingIDs    []string `json:"booking_ids,omitempty"`
}
