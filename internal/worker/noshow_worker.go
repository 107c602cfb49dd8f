package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/service"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/logger"
)

// NoShowWorkerConfig contains configuration for the no-show sweeper
type NoShowWorkerConfig struct {
	// ScanInterval is the interval between sweeps
	ScanInterval time.Duration
	// GracePeriod is how long after an event ends before confirmed
	// bookings without a check-in are marked no_show
	GracePeriod time.Duration
	// BatchSize is the number of bookings to process in each sweep
	BatchSize int
}

// DefaultNoShowWorkerConfig returns default configuration
func DefaultNoShowWorkerConfig() *NoShowWorkerConfig {
	return &NoShowWorkerConfig{
		ScanInterval: 15 * time.Minute,
		GracePeriod:  24 * time.Hour,
		BatchSize:    200,
	}
}

// NoShowWorker periodically sweeps confirmed bookings on ended events
// into no_show once the grace period has elapsed
type NoShowWorker struct {
	bookingService service.BookingService
	config         *NoShowWorkerConfig
	log            *logger.Logger
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	// Stats
	totalSwept     int64
	lastScanTime   time.Time
	lastSweptCount int
}

// NewNoShowWorker creates a new no-show sweeper
func NewNoShowWorker(bookingService service.BookingService, config *NoShowWorkerConfig) *NoShowWorker {
	if config == nil {
		config = DefaultNoShowWorkerConfig()
	}

	return &NoShowWorker{
		bookingService: bookingService,
		config:         config,
		log:            logger.Get(),
		stopCh:         make(chan struct{}),
	}
}

// Start starts the no-show sweeper
func (w *NoShowWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("no-show worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting no-show worker")

	w.wg.Add(1)
	go w.sweepLoop(ctx)

	return nil
}

// Stop stops the no-show sweeper
func (w *NoShowWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping no-show worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("No-show worker stopped")
}

func (w *NoShowWorker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *NoShowWorker) sweep(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	swept, err := w.bookingService.MarkNoShows(ctx, w.config.GracePeriod, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("No-show sweep failed: %v", err))
		return
	}

	w.mu.Lock()
	w.lastSweptCount = swept
	w.totalSwept += int64(swept)
	w.mu.Unlock()

	if swept > 0 {
		w.log.Info(fmt.Sprintf("Marked %d bookings as no_show", swept))
	}
}

// NoShowWorkerStats contains worker statistics
type NoShowWorkerStats struct {
	IsRunning      bool      `json:"is_running"`
	TotalSwept     int64     `json:"total_swept"`
	LastScanTime   time.Time `json:"last_scan_time"`
	LastSweptCount int       `json:"last_swept_count"`
}

// GetStats returns worker statistics
func (w *NoShowWorker) GetStats() *NoShowWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &NoShowWorkerStats{
		IsRunning:      w.running,
		TotalSwept:     w.totalSwept,
		LastScanTime:   w.lastScanTime,
		LastSweptCount: w.lastSweptCount,
	}
}
