package dto

import "time"

// ScanRequest represents a QR attendance scan submission
type ScanRequest struct {
	QRCodeData string `json:"qr_code_data" binding:"required"`
	EventID    string `json:"event_id" binding:"required"`
}

// ScanResponse is returned on a successful check-in
type ScanResponse struct {
	Message string      `json:"message"`
	Details ScanDetails `json:"details"`
}

// ScanDetails carries the check-in context shown to the scanner
type ScanDetails struct {
	EventTitle        string    `json:"event_title"`
	EventDate         time.Time `json:"event_date"`
	CheckedInAt       time.Time `json:"checked_in_at"`
	FeedbackEmailSent bool      `json:"feedback_email_sent"`
}
