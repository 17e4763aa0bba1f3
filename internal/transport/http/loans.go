package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/stacksapp/circulation/internal/app"
	"github.com/stacksapp/circulation/internal/domain"
)

// LoanBorrower is the minimal interface needed to issue a loan.
type LoanBorrower interface {
	Borrow(ctx context.Context, in app.BorrowInput) (domain.Loan, error)
}

// LoanLifecycle is the minimal interface needed for return and renewal.
type LoanLifecycle interface {
	Return(ctx context.Context, loanID string) (domain.Loan, error)
	Renew(ctx context.Context, loanID string) (domain.Loan, error)
}

// LostReporter is the minimal interface needed to report a lost copy.
type LostReporter interface {
	ReportLost(ctx context.Context, in app.ReportLostInput) (domain.Fine, error)
}

// HandleBorrowLoan returns an HTTP handler for issuing loans.
func HandleBorrowLoan(svc LoanBorrower) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req borrowRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.MemberID == "" || req.CopyID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "member_id and copy_id are required")
			return
		}

		var dueAt time.Time
		if req.DueAt != "" {
			parsed, err := time.Parse(time.RFC3339, req.DueAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDueDate, "invalid due_at format")
				return
			}
			dueAt = parsed
		}

		loan, err := svc.Borrow(r.Context(), app.BorrowInput{
			MemberID: req.MemberID,
			CopyID:   req.CopyID,
			StaffID:  req.StaffID,
			DueAt:    dueAt,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrInvalidDueDate:
				writeError(w, http.StatusBadRequest, codeInvalidDueDate, err.Error())
			case domain.ErrMemberNotFound:
				writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
			case domain.ErrCopyNotFound:
				writeError(w, http.StatusNotFound, codeCopyNotFound, err.Error())
			case domain.ErrMemberLocked:
				writeError(w, http.StatusConflict, codeMemberLocked, err.Error())
			case domain.ErrLoanLimitReached:
				writeError(w, http.StatusConflict, codeLoanLimitReached, err.Error())
			case domain.ErrCopyUnavailable:
				writeError(w, http.StatusConflict, codeCopyUnavailable, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(loanResponse{
			ID:       loan.ID,
			MemberID: loan.MemberID,
			CopyID:   loan.CopyID,
			TitleID:  loan.TitleID,
			Status:   string(loan.Status),
			LoanedAt: loan.LoanedAt,
			DueAt:    loan.DueAt,
			Renewals: loan.Renewals,
		})
	}
}

// HandleLoanActions routes POST /loans/{id}/return, /loans/{id}/renew and
// /loans/{id}/lost.
func HandleLoanActions(svc LoanLifecycle, fines LostReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		loanID, action, ok := parseLoanActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "return":
			handleReturn(w, r, svc, loanID)
		case "renew":
			handleRenew(w, r, svc, loanID)
		case "lost":
			handleReportLost(w, r, fines, loanID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleReturn(w http.ResponseWriter, r *http.Request, svc LoanLifecycle, loanID string) {
	loan, err := svc.Return(r.Context(), loanID)
	if err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrLoanNotFound:
			writeError(w, http.StatusNotFound, codeLoanNotFound, err.Error())
		case domain.ErrLoanAlreadyReturned:
			writeError(w, http.StatusConflict, codeAlreadyReturned, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(returnResponse{
		ID:         loan.ID,
		Status:     string(loan.Status),
		ReturnedAt: loan.ReturnedAt,
	})
}

func handleRenew(w http.ResponseWriter, r *http.Request, svc LoanLifecycle, loanID string) {
	loan, err := svc.Renew(r.Context(), loanID)
	if err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrLoanNotFound:
			writeError(w, http.StatusNotFound, codeLoanNotFound, err.Error())
		case domain.ErrLoanAlreadyReturned:
			writeError(w, http.StatusConflict, codeAlreadyReturned, err.Error())
		case domain.ErrRenewalLimitReached:
			writeError(w, http.StatusConflict, codeRenewalLimit, err.Error())
		case domain.ErrMemberLocked:
			writeError(w, http.StatusConflict, codeMemberLocked, err.Error())
		case domain.ErrReservationConflict:
			writeError(w, http.StatusConflict, codeReservationConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(renewResponse{
		ID:       loan.ID,
		DueAt:    loan.DueAt,
		Renewals: loan.Renewals,
	})
}

func handleReportLost(w http.ResponseWriter, r *http.Request, fines LostReporter, loanID string) {
	var req reportLostRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.CopyID == "" || req.MemberID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "copy_id and member_id are required")
		return
	}

	fine, err := fines.ReportLost(r.Context(), app.ReportLostInput{
		LoanID:      loanID,
		CopyID:      req.CopyID,
		MemberID:    req.MemberID,
		AmountCents: req.AmountCents,
		StaffID:     req.StaffID,
	})
	if err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrInvalidAmount:
			writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
		case domain.ErrLoanNotFound:
			writeError(w, http.StatusNotFound, codeLoanNotFound, err.Error())
		case domain.ErrCopyNotFound:
			writeError(w, http.StatusNotFound, codeCopyNotFound, err.Error())
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

func parseLoanActionPath(path string) (loanID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "loans" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type borrowRequest struct {
	MemberID string `json:"member_id"`
	CopyID   string `json:"copy_id"`
	StaffID  string `json:"staff_id,omitempty"`
	DueAt    string `json:"due_at,omitempty"`
}

type loanResponse struct {
	ID       string    `json:"id"`
	MemberID string    `json:"member_id"`
	CopyID   string    `json:"copy_id"`
	TitleID  string    `json:"title_id"`
	Status   string    `json:"status"`
	LoanedAt time.Time `json:"loaned_at"`
	DueAt    time.Time `json:"due_at"`
	Renewals int       `json:"renewals"`
}

type returnResponse struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	ReturnedAt *time.Time `json:"returned_at"`
}

type renewResponse struct {
	ID       string    `json:"id"`
	DueAt    time.Time `json:"due_at"`
	Renewals int       `json:"renewals"`
}

type reportLostRequest struct {
	CopyID      string `json:"copy_id"`
	MemberID    string `json:"member_id"`
	AmountCents int64  `json:"amount_cents"`
	StaffID     string `json:"staff_id,omitempty"`
}

type fineResponse struct {
	ID          string `json:"id"`
	LoanID      string `json:"loan_id"`
	MemberID    string `json:"member_id"`
	AmountCents int64  `json:"amount_cents"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
}
