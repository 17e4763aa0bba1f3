package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/domain"
)

func TestHandleCreateFine(t *testing.T) {
	t.Parallel()

	successFine := domain.Fine{
		ID:          "fine-123",
		LoanID:      "loan-1",
		MemberID:    "m1",
		AmountCents: 300,
		Kind:        domain.FineKindOverdue,
		Status:      domain.FineStatusReported,
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
			body:           `{"loan_id":"loan-1","member_id":"m1","amount_cents":300}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"kind":"overdue"`,
		},
		{
			name:           "invalid json",
			body:           `{"loan_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing member id",
			body:           `{"loan_id":"loan-1","amount_cents":300}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid amount",
			body:           `{"loan_id":"loan-1","member_id":"m1","amount_cents":0}`,
			serviceErr:     domain.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown loan",
			body:           `{"loan_id":"loan-1","member_id":"m1","amount_cents":300}`,
			serviceErr:     domain.ErrLoanNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown member",
			body:           `{"loan_id":"loan-1","member_id":"m1","amount_cents":300}`,
			serviceErr:     domain.ErrMemberNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			body:           `{"loan_id":"loan-1","member_id":"m1","amount_cents":300}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubFineLedger{
				fine: successFine,
				err:  tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, "/fines", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler := HandleCreateFine(svc)
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

func TestHandlePayFine(t *testing.T) {
	t.Parallel()

	paidFine := domain.Fine{
		ID:          "fine-123",
		LoanID:      "loan-1",
		MemberID:    "m1",
		AmountCents: 300,
		Kind:        domain.FineKindOverdue,
		Status:      domain.FineStatusPaid,
	}

	tests := []struct {
		name           string
		path           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			path:           "/fines/fine-123/pay",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"status":"paid"`,
		},
		{
			name:           "unknown fine",
			path:           "/fines/fine-123/pay",
			serviceErr:     domain.ErrFineNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "already paid",
			path:           "/fines/fine-123/pay",
			serviceErr:     domain.ErrFineAlreadyPaid,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "malformed path",
			path:           "/fines/fine-123/refund",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			path:           "/fines/fine-123/pay",
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubFineLedger{
				fine: paidFine,
				err:  tt.serviceErr,
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			rec := httptest.NewRecorder()

			handler := HandlePayFine(svc)
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

type stubFineLedger struct {
	fine domain.Fine
	err  error
}

func (s *stubFineLedger) CreateFine(_ context.Context, _ app.CreateFineInput) (domain.Fine, error) {
	return s.fine, s.err
}

func (s *stubFineLedger) PayFine(_ context.Context, _ string) (domain.Fine, error) {
	return s.fine, s.err
}
