package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// QRCode is the per-event attendance artifact. The token is the opaque
// payload encoded into the rendered QR image; scans are valid only inside
// the [ScanWindowStart, ScanWindowEnd] range while the artifact is active.
type QRCode struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Token           string    `json:"token"`
	ScanWindowStart time.Time `json:"scan_window_start"`
	ScanWindowEnd   time.Time `json:"scan_window_end"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewQRToken generates a cryptographically random scan token.
func NewQRToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsScannable reports whether a scan at the given instant should be accepted.
func (q *QRCode) IsScannable(now time.Time) error {
	if !q.Active {
		return ErrQRCodeNotFound
	}
	if now.Before(q.ScanWindowStart) || now.After(q.ScanWindowEnd) {
		return ErrOutsideScanWindow
	}
	return nil
}
