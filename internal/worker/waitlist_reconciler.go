package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/service"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/logger"
)

// WaitlistReconcilerConfig contains configuration for the waitlist reconciler
type WaitlistReconcilerConfig struct {
	// ScanInterval is the interval between reconciliation passes
	ScanInterval time.Duration
	// BatchSize caps how many events are reconciled per pass
	BatchSize int
}

// DefaultWaitlistReconcilerConfig returns default configuration
func DefaultWaitlistReconcilerConfig() *WaitlistReconcilerConfig {
	return &WaitlistReconcilerConfig{
		ScanInterval: 1 * time.Minute,
		BatchSize:    50,
	}
}

// WaitlistReconciler periodically promotes waitlisted bookings on events
// that have regained capacity. Promotion normally happens inline on
// cancellation; this catches capacity freed by admin edits or missed runs.
type WaitlistReconciler struct {
	bookingService service.BookingService
	config         *WaitlistReconcilerConfig
	log            *logger.Logger
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	// Stats
	totalPromoted     int64
	lastScanTime      time.Time
	lastPromotedCount int
}

// NewWaitlistReconciler creates a new waitlist reconciler
func NewWaitlistReconciler(bookingService service.BookingService, config *WaitlistReconcilerConfig) *WaitlistReconciler {
	if config == nil {
		config = DefaultWaitlistReconcilerConfig()
	}

	return &WaitlistReconciler{
		bookingService: bookingService,
		config:         config,
		log:            logger.Get(),
		stopCh:         make(chan struct{}),
	}
}

// Start starts the reconciler
func (w *WaitlistReconciler) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("waitlist reconciler already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting waitlist reconciler")

	w.wg.Add(1)
	go w.reconcileLoop(ctx)

	return nil
}

// Stop stops the reconciler
func (w *WaitlistReconciler) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping waitlist reconciler")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Waitlist reconciler stopped")
}

func (w *WaitlistReconciler) reconcileLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *WaitlistReconciler) reconcile(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	promoted, err := w.bookingService.ReconcileWaitlists(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Waitlist reconciliation failed: %v", err))
		return
	}

	w.mu.Lock()
	w.lastPromotedCount = promoted
	w.totalPromoted += int64(promoted)
	w.mu.Unlock()

	if promoted > 0 {
		w.log.Info(fmt.Sprintf("Promoted %d waitlisted bookings", promoted))
	}
}

// WaitlistReconcilerStats contains worker statistics
type WaitlistReconcilerStats struct {
	IsRunning         bool      `json:"is_running"`
	TotalPromoted     int64     `json:"total_promoted"`
	LastScanTime      time.Time `json:"last_scan_time"`
	LastPromotedCount int       `json:"last_promoted_count"`
}

// GetStats returns worker statistics
func (w *WaitlistReconciler) GetStats() *WaitlistReconcilerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &WaitlistReconcilerStats{
		IsRunning:         w.running,
		TotalPromoted:     w.totalPromoted,
		LastScanTime:      w.lastScanTime,
		LastPromotedCount: w.lastPromotedCount,
	}
}
