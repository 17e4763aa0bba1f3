package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/domain"
)

func TestHandleCreateReservation(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	successRes := domain.Reservation{
		ID:        "res-123",
		TitleID:   "t1",
		MemberID:  "m1",
		Status:    domain.ReservationStatusActive,
		Position:  1,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"title_id":"t1","member_id":"m1"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"position":1`,
		},
		{
			name:           "invalid json",
			body:           `{"title_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing member id",
			body:           `{"title_id":"t1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "title not found",
			body:           `{"title_id":"t1","member_id":"m1"}`,
			serviceErr:     domain.ErrTitleNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "member not found",
			body:           `{"title_id":"t1","member_id":"m1"}`,
			serviceErr:     domain.ErrMemberNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "duplicate hold",
			body:           `{"title_id":"t1","member_id":"m1"}`,
			serviceErr:     domain.ErrDuplicateReservation,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "internal error",
			body:           `{"title_id":"t1","member_id":"m1"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubReservationService{
				reservation: successRes,
				err:         tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler := HandleCreateReservation(svc)
			handler.ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, res.StatusCode)
			}
			if tt.expectedSubstr != "" {
				body := rec.Body.String()
				if !strings.Contains(body, tt.expectedSubstr) {
					t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, body)
				}
			}
		})
	}
}

func TestHandleReservationActions(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	fulfillResult := app.FulfillResult{
		Reservation: domain.Reservation{
			ID:     "res-123",
			Status: domain.ReservationStatusFulfilled,
		},
		Loan: domain.Loan{
			ID:     "loan-456",
			CopyID: "c1",
			DueAt:  now.Add(14 * 24 * time.Hour),
		},
	}
	cancelled := domain.Reservation{
		ID:     "res-123",
		Status: domain.ReservationStatusCancelled,
	}

	tests := []struct {
		name           string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "fulfill success",
			path:           "/reservations/res-123/fulfill",
			body:           `{"staff_id":"staff-1"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"loan_id":"loan-456"`,
		},
		{
			name:           "fulfill without body",
			path:           "/reservations/res-123/fulfill",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "fulfill invalid json",
			path:           "/reservations/res-123/fulfill",
			body:           `{"staff_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "fulfill not head of queue",
			path:           "/reservations/res-123/fulfill",
			serviceErr:     domain.ErrReservationNotEligible,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "fulfill expired hold",
			path:           "/reservations/res-123/fulfill",
			serviceErr:     domain.ErrHoldExpired,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "fulfill no copies",
			path:           "/reservations/res-123/fulfill",
			serviceErr:     domain.ErrNoAvailableCopies,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "fulfill locked member",
			path:           "/reservations/res-123/fulfill",
			serviceErr:     domain.ErrMemberLocked,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "fulfill loan limit",
			path:           "/reservations/res-123/fulfill",
			serviceErr:     domain.ErrLoanLimitReached,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "fulfill unknown reservation",
			path:           "/reservations/res-123/fulfill",
			serviceErr:     domain.ErrReservationNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "cancel success",
			path:           "/reservations/res-123/cancel",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"status":"cancelled"`,
		},
		{
			name:           "cancel terminal reservation",
			path:           "/reservations/res-123/cancel",
			serviceErr:     domain.ErrReservationNotActive,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unknown action",
			path:           "/reservations/res-123/expire",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "malformed path",
			path:           "/reservations/cancel",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			path:           "/reservations/res-123/cancel",
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubReservationService{
				result:      fulfillResult,
				reservation: cancelled,
				err:         tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler := HandleReservationActions(svc)
			handler.ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, res.StatusCode, rec.Body.String())
			}
			if tt.expectedSubstr != "" {
				body := rec.Body.String()
				if !strings.Contains(body, tt.expectedSubstr) {
					t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, body)
				}
			}
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/reservations/res-123/cancel", nil)
		rec := httptest.NewRecorder()

		HandleReservationActions(&stubReservationService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

type stubReservationService struct {
	reservation domain.Reservation
	result      app.FulfillResult
	err         error
}

func (s *stubReservationService) Reserve(_ context.Context, _ app.ReserveInput) (domain.Reservation, error) {
	return s.reservation, s.err
}

func (s *stubReservationService) Fulfill(_ context.Context, _ app.FulfillInput) (app.FulfillResult, error) {
	return s.result, s.err
}

func (s *stubReservationService) Cancel(_ context.Context, _ string) (domain.Reservation, error) {
	return s.reservation, s.err
}
