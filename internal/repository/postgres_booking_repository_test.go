package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
)

// skipIfNoIntegration skips the test unless integration tests are enabled
func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test: set RUN_INTEGRATION_TESTS=1 to run")
	}
}

// getPostgresPool creates a PostgreSQL connection pool for testing
func getPostgresPool(t *testing.T) *pgxpool.Pool {
	skipIfNoIntegration(t)

	host := os.Getenv("TEST_POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("TEST_POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("TEST_POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("TEST_POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("TEST_POSTGRES_DB")
	if dbname == "" {
		dbname = "sim_bleepy_test"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, dbname)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping PostgreSQL: %v", err)
	}

	return pool
}

// createTestEvent inserts an event row and registers cleanup
func createTestEvent(t *testing.T, pool *pgxpool.Pool, capacity *int, allowWaitlist bool) *domain.Event {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	event := &domain.Event{
		ID:              uuid.New().String(),
		Title:           "Test Teaching Session",
		StartTime:       now.Add(24 * time.Hour),
		EndTime:         now.Add(26 * time.Hour),
		BookingEnabled:  true,
		BookingCapacity: capacity,
		AllowWaitlist:   allowWaitlist,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO events (
			id, title, start_time, end_time, booking_enabled,
			booking_capacity, allow_waitlist, requires_approval,
			checkbox_1_required, checkbox_2_required,
			qr_attendance_enabled, auto_generate_certificate,
			feedback_required_for_certificate, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, FALSE, FALSE, FALSE, FALSE, FALSE, $8, $9)
	`, event.ID, event.Title, event.StartTime, event.EndTime, event.BookingEnabled,
		event.BookingCapacity, event.AllowWaitlist, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to insert test event: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM bookings WHERE event_id = $1`, event.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM events WHERE id = $1`, event.ID)
	})

	return event
}

func newTestBooking(eventID string) *domain.Booking {
	now := time.Now()
	return &domain.Booking{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    "user-" + uuid.New().String(),
		BookedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresBookingRepository_CreateBooking_AssignsConfirmed(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	capacity := 2
	event := createTestEvent(t, pool, &capacity, true)

	booking := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, booking, event); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("Status = %v, want %v", booking.Status, domain.BookingStatusConfirmed)
	}
}

func TestPostgresBookingRepository_CreateBooking_OverflowsToWaitlist(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	capacity := 1
	event := createTestEvent(t, pool, &capacity, true)

	first := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, first, event); err != nil {
		t.Fatalf("CreateBooking() first error = %v", err)
	}
	if first.Status != domain.BookingStatusConfirmed {
		t.Fatalf("first Status = %v, want confirmed", first.Status)
	}

	second := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, second, event); err != nil {
		t.Fatalf("CreateBooking() second error = %v", err)
	}
	if second.Status != domain.BookingStatusWaitlist {
		t.Errorf("second Status = %v, want waitlist", second.Status)
	}
}

func TestPostgresBookingRepository_CreateBooking_FullWithoutWaitlist(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	capacity := 1
	event := createTestEvent(t, pool, &capacity, false)

	first := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, first, event); err != nil {
		t.Fatalf("CreateBooking() first error = %v", err)
	}

	second := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, second, event); err != domain.ErrWaitlistNotAllowed {
		t.Errorf("CreateBooking() error = %v, want %v", err, domain.ErrWaitlistNotAllowed)
	}
}

func TestPostgresBookingRepository_CancelWithPromotion_FIFO(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	capacity := 1
	event := createTestEvent(t, pool, &capacity, true)

	confirmed := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, confirmed, event); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	// Two waitlist entries; the older must be promoted first.
	older := newTestBooking(event.ID)
	older.BookedAt = time.Now()
	if err := repo.CreateBooking(ctx, older, event); err != nil {
		t.Fatalf("CreateBooking() older error = %v", err)
	}

	newer := newTestBooking(event.ID)
	newer.BookedAt = older.BookedAt.Add(time.Second)
	if err := repo.CreateBooking(ctx, newer, event); err != nil {
		t.Fatalf("CreateBooking() newer error = %v", err)
	}

	promoted, err := repo.CancelWithPromotion(ctx, confirmed.ID, "schedule conflict")
	if err != nil {
		t.Fatalf("CancelWithPromotion() error = %v", err)
	}

	if promoted == nil {
		t.Fatal("expected a promoted booking, got nil")
	}
	if promoted.ID != older.ID {
		t.Errorf("promoted booking = %s, want oldest waitlist entry %s", promoted.ID, older.ID)
	}
	if promoted.Status != domain.BookingStatusConfirmed {
		t.Errorf("promoted status = %v, want confirmed", promoted.Status)
	}
	if promoted.PromotedAt == nil {
		t.Error("promoted booking should carry a promoted_at timestamp")
	}

	cancelled, err := repo.GetByID(ctx, confirmed.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled {
		t.Errorf("cancelled status = %v, want cancelled", cancelled.Status)
	}
	if cancelled.CancellationReason != "schedule conflict" {
		t.Errorf("cancellation reason = %q, want %q", cancelled.CancellationReason, "schedule conflict")
	}
}

func TestPostgresBookingRepository_CancelWaitlist_NoPromotion(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	capacity := 1
	event := createTestEvent(t, pool, &capacity, true)

	confirmed := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, confirmed, event); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	waitlisted := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, waitlisted, event); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	// Cancelling a waitlist entry frees no confirmed slot.
	promoted, err := repo.CancelWithPromotion(ctx, waitlisted.ID, "no longer needed")
	if err != nil {
		t.Fatalf("CancelWithPromotion() error = %v", err)
	}
	if promoted != nil {
		t.Errorf("expected no promotion, got booking %s", promoted.ID)
	}
}

func TestPostgresBookingRepository_ConcurrentCancels_PromotionNotLost(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	// A confirmed booking and two waitlist entries behind it. Cancelling
	// the confirmed one promotes the older waitlist entry; a concurrent
	// cancel of that same entry must then see it as confirmed and promote
	// the remaining one. The freed slot must never go unfilled while the
	// waitlist is non-empty.
	for i := 0; i < 5; i++ {
		capacity := 1
		event := createTestEvent(t, pool, &capacity, true)

		confirmed := newTestBooking(event.ID)
		if err := repo.CreateBooking(ctx, confirmed, event); err != nil {
			t.Fatalf("CreateBooking() confirmed error = %v", err)
		}

		first := newTestBooking(event.ID)
		first.BookedAt = time.Now()
		if err := repo.CreateBooking(ctx, first, event); err != nil {
			t.Fatalf("CreateBooking() first error = %v", err)
		}

		second := newTestBooking(event.ID)
		second.BookedAt = first.BookedAt.Add(time.Second)
		if err := repo.CreateBooking(ctx, second, event); err != nil {
			t.Fatalf("CreateBooking() second error = %v", err)
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			if _, err := repo.CancelWithPromotion(ctx, confirmed.ID, "gave up slot"); err != nil {
				t.Errorf("CancelWithPromotion() confirmed error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			<-start
			if _, err := repo.CancelWithPromotion(ctx, first.ID, "no longer needed"); err != nil {
				t.Errorf("CancelWithPromotion() first error = %v", err)
			}
		}()
		close(start)
		wg.Wait()

		remaining, err := repo.GetByID(ctx, second.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if remaining.Status != domain.BookingStatusConfirmed {
			t.Errorf("iteration %d: remaining waitlist booking status = %v, want confirmed", i, remaining.Status)
		}
	}
}

func TestPostgresBookingRepository_CheckIn_Guarded(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	event := createTestEvent(t, pool, nil, false)

	booking := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, booking, event); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	now := time.Now()
	if err := repo.CheckIn(ctx, booking.ID, now); err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}

	if err := repo.CheckIn(ctx, booking.ID, now); err != domain.ErrAlreadyCheckedIn {
		t.Errorf("second CheckIn() error = %v, want %v", err, domain.ErrAlreadyCheckedIn)
	}

	got, err := repo.GetByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.BookingStatusAttended {
		t.Errorf("status = %v, want attended", got.Status)
	}
	if !got.CheckedIn || got.CheckedInAt == nil {
		t.Error("checked_in flag and timestamp should be set")
	}
}

func TestPostgresBookingRepository_GetByID_NotFound(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New().String())
	if err != domain.ErrBookingNotFound {
		t.Errorf("GetByID() error = %v, want %v", err, domain.ErrBookingNotFound)
	}
}

func TestPostgresBookingRepository_DeleteCancelled_Guarded(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	repo := NewPostgresBookingRepository(pool)
	ctx := context.Background()

	event := createTestEvent(t, pool, nil, false)

	booking := newTestBooking(event.ID)
	if err := repo.CreateBooking(ctx, booking, event); err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	if err := repo.DeleteCancelled(ctx, booking.ID); err != domain.ErrBookingNotCancelled {
		t.Errorf("DeleteCancelled() on active booking = %v, want %v", err, domain.ErrBookingNotCancelled)
	}

	if _, err := repo.CancelWithPromotion(ctx, booking.ID, "cleanup"); err != nil {
		t.Fatalf("CancelWithPromotion() error = %v", err)
	}

	if err := repo.DeleteCancelled(ctx, booking.ID); err != nil {
		t.Errorf("DeleteCancelled() on cancelled booking = %v", err)
	}
}
