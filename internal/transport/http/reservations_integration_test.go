package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/clock"
	"github.com/stacksapp/circulation/internal/domain"
	"github.com/stacksapp/circulation/internal/storage/postgres"
	"github.com/stacksapp/circulation/internal/testutil"
)

func TestReserveAndFulfill_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := postgres.NewReservationRepository(pool)
	now := time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)
	svc := app.NewReservationService(repo, clock.NewFixed(now), nil)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	memberA := testutil.InsertMember(t, ctx, pool, "Ada", domain.MemberStatusActive)
	memberB := testutil.InsertMember(t, ctx, pool, "Bob", domain.MemberStatusActive)
	titleID, copyID := testutil.InsertTitleAndCopy(t, ctx, pool, "Dune", "bc-1")

	mux := http.NewServeMux()
	mux.Handle("/reservations", HandleCreateReservation(svc))
	mux.Handle("/reservations/", HandleReservationActions(svc))

	reserve := func(memberID string) reservationResponse {
		t.Helper()
		body := []byte(`{"title_id":"` + titleID + `","member_id":"` + memberID + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBuffer(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp reservationResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp
	}

	first := reserve(memberA)
	second := reserve(memberB)

	if first.Position != 1 || second.Position != 2 {
		t.Fatalf("expected positions 1 and 2, got %d and %d", first.Position, second.Position)
	}
	if !first.ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expected expires_at %v, got %v", now.Add(7*24*time.Hour), first.ExpiresAt)
	}

	dupBody := []byte(`{"title_id":"` + titleID + `","member_id":"` + memberA + `"}`)
	dupReq := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBuffer(dupBody))
	dupRec := httptest.NewRecorder()
	mux.ServeHTTP(dupRec, dupReq)
	if dupRec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate hold, got %d", dupRec.Code)
	}

	fulfillReq := httptest.NewRequest(http.MethodPost, "/reservations/"+second.ID+"/fulfill", nil)
	fulfillRec := httptest.NewRecorder()
	mux.ServeHTTP(fulfillRec, fulfillReq)
	if fulfillRec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 fulfilling behind the head, got %d", fulfillRec.Code)
	}

	fulfillReq = httptest.NewRequest(http.MethodPost, "/reservations/"+first.ID+"/fulfill", nil)
	fulfillRec = httptest.NewRecorder()
	mux.ServeHTTP(fulfillRec, fulfillReq)
	if fulfillRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", fulfillRec.Code, fulfillRec.Body.String())
	}

	var fulfilled fulfillResponse
	if err := json.NewDecoder(fulfillRec.Body).Decode(&fulfilled); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fulfilled.Status != string(domain.ReservationStatusFulfilled) {
		t.Fatalf("expected status fulfilled, got %s", fulfilled.Status)
	}
	if fulfilled.CopyID != copyID {
		t.Fatalf("expected copy %s, got %s", copyID, fulfilled.CopyID)
	}

	var position int
	if err := pool.QueryRow(ctx, `SELECT position FROM reservations WHERE id = $1`, second.ID).Scan(&position); err != nil {
		t.Fatalf("query position: %v", err)
	}
	if position != 1 {
		t.Fatalf("expected remaining hold promoted to position 1, got %d", position)
	}

	var loanStatus string
	if err := pool.QueryRow(ctx, `SELECT status FROM loans WHERE id = $1`, fulfilled.LoanID).Scan(&loanStatus); err != nil {
		t.Fatalf("query loan: %v", err)
	}
	if loanStatus != string(domain.LoanStatusBorrowed) {
		t.Fatalf("expected borrowed loan, got %s", loanStatus)
	}

	fulfillAgain := httptest.NewRequest(http.MethodPost, "/reservations/"+first.ID+"/fulfill", nil)
	fulfillAgainRec := httptest.NewRecorder()
	mux.ServeHTTP(fulfillAgainRec, fulfillAgain)
	if fulfillAgainRec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 on second fulfillment, got %d", fulfillAgainRec.Code)
	}

	cancelReq := httptest.NewRequest(http.MethodPost, "/reservations/"+second.ID+"/cancel", nil)
	cancelRec := httptest.NewRecorder()
	mux.ServeHTTP(cancelRec, cancelReq)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", cancelRec.Code, cancelRec.Body.String())
	}

	var cancelled reservationResponse
	if err := json.NewDecoder(cancelRec.Body).Decode(&cancelled); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cancelled.Status != string(domain.ReservationStatusCancelled) {
		t.Fatalf("expected status cancelled, got %s", cancelled.Status)
	}
}
