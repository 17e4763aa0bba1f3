package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/clock"
	"github.com/stacksapp/circulation/internal/domain"
	"github.com/stacksapp/circulation/internal/testutil"
)

// Two members race to borrow the only copy of a title. Both transactions
// reach the copy row; the second blocks on the row lock until the first
// commits, re-reads the flipped status and loses with ErrCopyUnavailable.
func TestBorrow_ContendingRequestsSingleCopy(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	svc := app.NewLoanService(NewLoanRepository(pool), clock.NewSystem(), nil)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	memberA := testutil.InsertMember(t, ctx, pool, "Ada", domain.MemberStatusActive)
	memberB := testutil.InsertMember(t, ctx, pool, "Bob", domain.MemberStatusActive)
	_, copyID := testutil.InsertTitleAndCopy(t, ctx, pool, "Dune", "bc-1")

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, memberID := range []string{memberA, memberB} {
		wg.Add(1)
		go func(memberID string) {
			defer wg.Done()
			_, err := svc.Borrow(ctx, app.BorrowInput{MemberID: memberID, CopyID: copyID})
			errs <- err
		}(memberID)
	}
	wg.Wait()
	close(errs)

	var successes, losses int
	for err := range errs {
		switch err {
		case nil:
			successes++
		case domain.ErrCopyUnavailable:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner and one ErrCopyUnavailable, got %d winners, %d losers", successes, losses)
	}

	var borrowed int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE copy_id = $1 AND status = 'borrowed'`, copyID,
	).Scan(&borrowed); err != nil {
		t.Fatalf("count loans: %v", err)
	}
	if borrowed != 1 {
		t.Fatalf("expected exactly 1 borrowed loan, got %d", borrowed)
	}
}

// Two staff requests race to fulfill the same head-of-queue reservation.
// The second blocks on the reservation row lock; once the first commits
// it re-reads the fulfilled status and loses with ErrReservationNotEligible,
// so exactly one loan is ever created.
func TestFulfill_ContendingRequestsSameReservation(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	svc := app.NewReservationService(NewReservationRepository(pool), clock.NewSystem(), nil)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	memberID := testutil.InsertMember(t, ctx, pool, "Ada", domain.MemberStatusActive)
	titleID, _ := testutil.InsertTitleAndCopy(t, ctx, pool, "Dune", "bc-1")
	resID := testutil.InsertReservation(t, ctx, pool, titleID, memberID, domain.Reservation{Position: 1})

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Fulfill(ctx, app.FulfillInput{ReservationID: resID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, losses int
	for err := range errs {
		switch err {
		case nil:
			successes++
		case domain.ErrReservationNotEligible:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner and one ErrReservationNotEligible, got %d winners, %d losers", successes, losses)
	}

	var loans int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE member_id = $1`, memberID,
	).Scan(&loans); err != nil {
		t.Fatalf("count loans: %v", err)
	}
	if loans != 1 {
		t.Fatalf("expected exactly 1 loan, got %d", loans)
	}

	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1`, resID).Scan(&status); err != nil {
		t.Fatalf("query reservation: %v", err)
	}
	if status != string(domain.ReservationStatusFulfilled) {
		t.Fatalf("expected fulfilled, got %s", status)
	}
}
