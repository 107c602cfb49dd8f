package metrics

import (
	"context"
	"sync"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Booking lifecycle counters
	BookingsConfirmed  *telemetry.Counter
	BookingsWaitlisted *telemetry.Counter
	BookingsPending    *telemetry.Counter
	BookingsCancelled  *telemetry.Counter
	BookingsPromoted   *telemetry.Counter
	BookingsNoShow     *telemetry.Counter
	BookingsFailed     *telemetry.Counter

	// Attendance counters
	ScansAccepted *telemetry.Counter
	ScansRejected *telemetry.Counter

	// Certificate counters
	CertificatesIssued *telemetry.Counter

	// Error tracking counters
	ErrorsTotal       *telemetry.Counter
	SlowRequestsTotal *telemetry.Counter

	// Histograms
	RequestDuration *telemetry.Histogram

	// Gauges
	WaitlistDepth *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all booking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	BookingsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_confirmations_total",
		Description: "Total number of bookings confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsWaitlisted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_waitlists_total",
		Description: "Total number of bookings placed on a waitlist",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsPending, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_pendings_total",
		Description: "Total number of bookings awaiting approval",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_cancellations_total",
		Description: "Total number of cancelled bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsPromoted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_promotions_total",
		Description: "Total number of waitlist bookings promoted to confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsNoShow, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_no_shows_total",
		Description: "Total number of bookings marked no-show",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_failures_total",
		Description: "Total number of rejected booking attempts",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ScansAccepted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "attendance_scans_accepted_total",
		Description: "Total number of QR scans that marked a booking attended",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ScansRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "attendance_scans_rejected_total",
		Description: "Total number of QR scans rejected by reason",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CertificatesIssued, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "certificates_issued_total",
		Description: "Total number of certificates issued",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	// Request duration histogram for latency tracking (p50, p90, p99)
	RequestDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "booking_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}) // 5ms to 10s
	if err != nil {
		return err
	}

	ErrorsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SlowRequestsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_slow_requests_total",
		Description: "Total number of slow requests (>1s)",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WaitlistDepth, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "booking_waitlist_depth",
		Description: "Current number of waitlisted bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordBookingCreated records a newly created booking by its assigned status
func RecordBookingCreated(ctx context.Context, eventID, status string) {
	attrs := []attribute.KeyValue{
		attribute.String("event_id", eventID),
	}
	switch status {
	case "confirmed":
		if BookingsConfirmed != nil {
			BookingsConfirmed.Inc(ctx, attrs...)
		}
	case "waitlist":
		if BookingsWaitlisted != nil {
			BookingsWaitlisted.Inc(ctx, attrs...)
		}
		if WaitlistDepth != nil {
			WaitlistDepth.Inc(ctx)
		}
	case "pending":
		if BookingsPending != nil {
			BookingsPending.Inc(ctx, attrs...)
		}
	}
}

// RecordCancellation records a booking cancellation metric
func RecordCancellation(ctx context.Context, eventID string, wasWaitlisted bool) {
	if BookingsCancelled != nil {
		BookingsCancelled.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if wasWaitlisted && WaitlistDepth != nil {
		WaitlistDepth.Dec(ctx)
	}
}

// RecordPromotion records waitlist promotions
func RecordPromotion(ctx context.Context, eventID string, count int64) {
	if count <= 0 {
		return
	}
	if BookingsPromoted != nil {
		BookingsPromoted.Add(ctx, count,
			attribute.String("event_id", eventID),
		)
	}
	if WaitlistDepth != nil {
		WaitlistDepth.Add(ctx, -count)
	}
}

// RecordNoShow records bookings swept to no-show
func RecordNoShow(ctx context.Context, count int64) {
	if count > 0 && BookingsNoShow != nil {
		BookingsNoShow.Add(ctx, count)
	}
}

// RecordFailure records a rejected booking attempt
func RecordFailure(ctx context.Context, eventID, reason string) {
	if BookingsFailed != nil {
		BookingsFailed.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		)
	}
}

// RecordScanAccepted records a QR scan that marked a booking attended
func RecordScanAccepted(ctx context.Context, eventID string) {
	if ScansAccepted != nil {
		ScansAccepted.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordScanRejected records a rejected QR scan by reason
func RecordScanRejected(ctx context.Context, eventID, reason string) {
	if ScansRejected != nil {
		ScansRejected.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		)
	}
}

// RecordCertificateIssued records an issued certificate
func RecordCertificateIssued(ctx context.Context, eventID string, emailSent bool) {
	if CertificatesIssued != nil {
		CertificatesIssued.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.Bool("email_sent", emailSent),
		)
	}
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}

// RecordRequestDuration records HTTP request duration and tracks slow requests
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
	// Track slow requests (>1s)
	if durationSeconds > 1.0 && SlowRequestsTotal != nil {
		SlowRequestsTotal.Inc(ctx,
			attribute.String("operation", operation),
		)
	}
}
