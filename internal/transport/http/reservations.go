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

// ReservationCreator is the minimal interface needed to place a hold.
type ReservationCreator interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Reservation, error)
}

// ReservationLifecycle is the minimal interface needed for fulfillment
// and cancellation.
type ReservationLifecycle interface {
	Fulfill(ctx context.Context, in app.FulfillInput) (app.FulfillResult, error)
	Cancel(ctx context.Context, reservationID string) (domain.Reservation, error)
}

// HandleCreateReservation returns an HTTP handler for placing holds.
func HandleCreateReservation(svc ReservationCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.TitleID == "" || req.MemberID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "title_id and member_id are required")
			return
		}

		res, err := svc.Reserve(r.Context(), app.ReserveInput{
			TitleID:  req.TitleID,
			MemberID: req.MemberID,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrMemberNotFound:
				writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
			case domain.ErrTitleNotFound:
				writeError(w, http.StatusNotFound, codeTitleNotFound, err.Error())
			case domain.ErrDuplicateReservation:
				writeError(w, http.StatusConflict, codeDuplicateHold, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(reservationResponse{
			ID:        res.ID,
			TitleID:   res.TitleID,
			MemberID:  res.MemberID,
			Status:    string(res.Status),
			Position:  res.Position,
			ExpiresAt: res.ExpiresAt,
		})
	}
}

// HandleReservationActions routes POST /reservations/{id}/fulfill and
// /reservations/{id}/cancel.
func HandleReservationActions(svc ReservationLifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		reservationID, action, ok := parseReservationActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "fulfill":
			handleFulfill(w, r, svc, reservationID)
		case "cancel":
			handleCancel(w, r, svc, reservationID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleFulfill(w http.ResponseWriter, r *http.Request, svc ReservationLifecycle, reservationID string) {
	var req fulfillRequest
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
	}

	result, err := svc.Fulfill(r.Context(), app.FulfillInput{
		ReservationID: reservationID,
		StaffID:       req.StaffID,
	})
	if err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrReservationNotFound:
			writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
		case domain.ErrReservationNotEligible:
			writeError(w, http.StatusConflict, codeHoldNotEligible, err.Error())
		case domain.ErrHoldExpired:
			writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
		case domain.ErrMemberLocked:
			writeError(w, http.StatusConflict, codeMemberLocked, err.Error())
		case domain.ErrLoanLimitReached:
			writeError(w, http.StatusConflict, codeLoanLimitReached, err.Error())
		case domain.ErrNoAvailableCopies:
			writeError(w, http.StatusConflict, codeNoAvailableCopies, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(fulfillResponse{
		ReservationID: result.Reservation.ID,
		Status:        string(result.Reservation.Status),
		LoanID:        result.Loan.ID,
		CopyID:        result.Loan.CopyID,
		DueAt:         result.Loan.DueAt,
	})
}

func handleCancel(w http.ResponseWriter, r *http.Request, svc ReservationLifecycle, reservationID string) {
	res, err := svc.Cancel(r.Context(), reservationID)
	if err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrReservationNotFound:
			writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
		case domain.ErrReservationNotActive:
			writeError(w, http.StatusConflict, codeHoldNotActive, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reservationResponse{
		ID:        res.ID,
		TitleID:   res.TitleID,
		MemberID:  res.MemberID,
		Status:    string(res.Status),
		Position:  res.Position,
		ExpiresAt: res.ExpiresAt,
	})
}

func parseReservationActionPath(path string) (reservationID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "reservations" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createReservationRequest struct {
	TitleID  string `json:"title_id"`
	MemberID string `json:"member_id"`
}

type reservationResponse struct {
	ID        string    `json:"id"`
	TitleID   string    `json:"title_id"`
	MemberID  string    `json:"member_id"`
	Status    string    `json:"status"`
	Position  int       `json:"position"`
	ExpiresAt time.Time `json:"expires_at"`
}

type fulfillRequest struct {
	StaffID string `json:"staff_id,omitempty"`
}

type fulfillResponse struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	LoanID        string    `json:"loan_id"`
	CopyID        string    `json:"copy_id"`
	DueAt         time.Time `json:"due_at"`
}
