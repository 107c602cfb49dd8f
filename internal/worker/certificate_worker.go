package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/service"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/logger"
)

// CertificateWorkerConfig contains configuration for the certificate worker
type CertificateWorkerConfig struct {
	// ScanInterval is the interval between issuing runs
	ScanInterval time.Duration
	// BatchSize is the number of eligible bookings to process per run
	BatchSize int
}

// DefaultCertificateWorkerConfig returns default configuration
func DefaultCertificateWorkerConfig() *CertificateWorkerConfig {
	return &CertificateWorkerConfig{
		ScanInterval: 5 * time.Minute,
		BatchSize:    100,
	}
}

// CertificateWorker periodically issues certificates for attended bookings
// that have submitted feedback and have no certificate yet
type CertificateWorker struct {
	bookingService service.BookingService
	config         *CertificateWorkerConfig
	log            *logger.Logger
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	// Stats
	totalIssued     int64
	lastScanTime    time.Time
	lastIssuedCount int
}

// NewCertificateWorker creates a new certificate worker
func NewCertificateWorker(bookingService service.BookingService, config *CertificateWorkerConfig) *CertificateWorker {
	if config == nil {
		config = DefaultCertificateWorkerConfig()
	}

	return &CertificateWorker{
		bookingService: bookingService,
		config:         config,
		log:            logger.Get(),
		stopCh:         make(chan struct{}),
	}
}

// Start starts the certificate worker
func (w *CertificateWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("certificate worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting certificate worker")

	w.wg.Add(1)
	go w.issueLoop(ctx)

	return nil
}

// Stop stops the certificate worker
func (w *CertificateWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping certificate worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Certificate worker stopped")
}

func (w *CertificateWorker) issueLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.issue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.issue(ctx)
		}
	}
}

func (w *CertificateWorker) issue(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	issued, err := w.bookingService.IssueCertificates(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Certificate run failed: %v", err))
		return
	}

	w.mu.Lock()
	w.lastIssuedCount = issued
	w.totalIssued += int64(issued)
	w.mu.Unlock()

	if issued > 0 {
		w.log.Info(fmt.Sprintf("Issued %d certificates", issued))
	}
}

// CertificateWorkerStats contains worker statistics
type CertificateWorkerStats struct {
	IsRunning       bool      `json:"is_running"`
	TotalIssued     int64     `json:"total_issued"`
	LastScanTime    time.Time `json:"last_scan_time"`
	LastIssuedCount int       `json:"last_issued_count"`
}

// GetStats returns worker statistics
func (w *CertificateWorker) GetStats() *CertificateWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &CertificateWorkerStats{
		IsRunning:       w.running,
		TotalIssued:     w.totalIssued,
		LastScanTime:    w.lastScanTime,
		LastIssuedCount: w.lastIssuedCount,
	}
}
