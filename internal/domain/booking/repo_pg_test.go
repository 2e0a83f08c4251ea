package booking

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinic/internal/platform/db"
)

// pgTestPool connects to TEST_DATABASE_URL and applies the repo migrations.
// Tests are skipped when no database is configured.
func pgTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres repository tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, db.PoolOptions{URL: url, MaxConns: 25})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, "../../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// cleanupPatient removes every row written for patient.
func cleanupPatient(t *testing.T, pool *pgxpool.Pool, patient string) {
	t.Cleanup(func() {
		ctx := context.Background()
		pool.Exec(ctx, `DELETE FROM payments WHERE booking_id IN (SELECT id FROM bookings WHERE patient = $1)`, patient)
		pool.Exec(ctx, `DELETE FROM bookings WHERE patient = $1`, patient)
	})
}

func newRepoBooking(patient, treatment string) *Booking {
	return &Booking{
		ID:        uuid.New().String(),
		Treatment: treatment,
		Date:      "Jun 1, 2030",
		Slot:      "08:00 AM - 08:30 AM",
		Patient:   patient,
		Price:     40,
	}
}

func TestRepoPG_CreateIfAbsent_ConcurrentSingleRow(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewRepoPG(pool)
	patient := uuid.New().String() + "@clinic.test"
	cleanupPatient(t, pool, patient)

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]bool{}
		errs    []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			b, ok, err := repo.CreateIfAbsent(context.Background(), newRepoBooking(patient, "Teeth Cleaning"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if ok {
				created++
			}
			ids[b.ID] = true
		}()
	}
	close(start)
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if created != 1 {
		t.Errorf("expected exactly 1 insert, got %d", created)
	}
	if len(ids) != 1 {
		t.Errorf("expected every caller to see the same booking, got %d ids", len(ids))
	}

	var count int
	if err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM bookings WHERE patient = $1`, patient).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 stored row, got %d", count)
	}
}

func TestRepoPG_CreateIfAbsent_DifferentTreatmentIsNewRow(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewRepoPG(pool)
	patient := uuid.New().String() + "@clinic.test"
	cleanupPatient(t, pool, patient)
	ctx := context.Background()

	if _, ok, err := repo.CreateIfAbsent(ctx, newRepoBooking(patient, "Teeth Cleaning")); err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	if _, ok, err := repo.CreateIfAbsent(ctx, newRepoBooking(patient, "Cavity Protection")); err != nil || !ok {
		t.Fatalf("second treatment: ok=%v err=%v", ok, err)
	}
}

func TestRepoPG_ConfirmPayment_DuplicateTransactionRollsBack(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewRepoPG(pool)
	patient := uuid.New().String() + "@clinic.test"
	cleanupPatient(t, pool, patient)
	ctx := context.Background()
	txn := "pi_" + uuid.New().String()

	first, _, err := repo.CreateIfAbsent(ctx, newRepoBooking(patient, "Teeth Cleaning"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, _, err := repo.CreateIfAbsent(ctx, newRepoBooking(patient, "Teeth Orthodontics"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	res, err := repo.ConfirmPayment(ctx, first.ID, &PaymentReceipt{ID: uuid.New().String(), TransactionID: txn, Amount: 40})
	if err != nil {
		t.Fatalf("confirm first: %v", err)
	}
	if res.MatchedCount != 1 || res.ModifiedCount != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	_, err = repo.ConfirmPayment(ctx, second.ID, &PaymentReceipt{ID: uuid.New().String(), TransactionID: txn, Amount: 40})
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}

	got, err := repo.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("get second: %v", err)
	}
	if got.Paid || got.TransactionID != "" {
		t.Errorf("failed receipt must leave booking unpaid, got paid=%v txn=%q", got.Paid, got.TransactionID)
	}

	var receipts int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = $1`, second.ID).Scan(&receipts); err != nil {
		t.Fatalf("count receipts: %v", err)
	}
	if receipts != 0 {
		t.Errorf("expected no receipt for second booking, got %d", receipts)
	}
}

func TestRepoPG_ConfirmPayment_UnknownBookingWritesNothing(t *testing.T) {
	pool := pgTestPool(t)
	repo := NewRepoPG(pool)
	ctx := context.Background()
	txn := "pi_" + uuid.New().String()

	res, err := repo.ConfirmPayment(ctx, uuid.New().String(), &PaymentReceipt{ID: uuid.New().String(), TransactionID: txn, Amount: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MatchedCount != 0 || res.ModifiedCount != 0 {
		t.Errorf("expected zero counts, got %+v", res)
	}

	var receipts int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE transaction_id = $1`, txn).Scan(&receipts); err != nil {
		t.Fatalf("count receipts: %v", err)
	}
	if receipts != 0 {
		t.Errorf("expected no receipt, got %d", receipts)
	}
}
