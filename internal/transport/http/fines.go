package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/domain"
)

// FineLedger is the minimal interface needed for fine creation and payment.
type FineLedger interface {
	CreateFine(ctx context.Context, in app.CreateFineInput) (domain.Fine, error)
	PayFine(ctx context.Context, fineID string) (domain.Fine, error)
}

// HandleCreateFine returns an HTTP handler for recording overdue fines.
func HandleCreateFine(svc FineLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createFineRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.LoanID == "" || req.MemberID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "loan_id and member_id are required")
			return
		}

		fine, err := svc.CreateFine(r.Context(), app.CreateFineInput{
			LoanID:      req.LoanID,
			MemberID:    req.MemberID,
			AmountCents: req.AmountCents,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrInvalidAmount:
				writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
			case domain.ErrLoanNotFound:
				writeError(w, http.StatusNotFound, codeLoanNotFound, err.Error())
			case domain.ErrMemberNotFound:
				writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(fineResponse{
			ID:          fine.ID,
			LoanID:      fine.LoanID,
			MemberID:    fine.MemberID,
			AmountCents: fine.AmountCents,
			Kind:        string(fine.Kind),
			Status:      string(fine.Status),
		})
	}
}

// HandlePayFine routes POST /fines/{id}/pay.
func HandlePayFine(svc FineLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		fineID, ok := parsePayFinePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		fine, err := svc.PayFine(r.Context(), fineID)
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrFineNotFound:
				writeError(w, http.StatusNotFound, codeFineNotFound, err.Error())
			case domain.ErrFineAlreadyPaid:
				writeError(w, http.StatusConflict, codeFineAlreadyPaid, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fineResponse{
			ID:          fine.ID,
			LoanID:      fine.LoanID,
			MemberID:    fine.MemberID,
			AmountCents: fine.AmountCents,
			Kind:        string(fine.Kind),
			Status:      string(fine.Status),
		})
	}
}

func parsePayFinePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "fines" || parts[2] != "pay" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createFineRequest struct {
	LoanID      string `json:"loan_id"`
	MemberID    string `json:"member_id"`
	AmountCents int64  `json:"amount_cents"`
}
