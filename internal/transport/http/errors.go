package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidDueDate      = "invalid_due_date"
	codeInvalidAmount       = "invalid_amount"
	codeMemberNotFound      = "member_not_found"
	codeMemberLocked        = "member_locked"
	codeLoanLimitReached    = "loan_limit_reached"
	codeTitleNotFound       = "title_not_found"
	codeCopyNotFound        = "copy_not_found"
	codeCopyUnavailable     = "copy_unavailable"
	codeLoanNotFound        = "loan_not_found"
	codeAlreadyReturned     = "loan_already_returned"
	codeRenewalLimit        = "renewal_limit_reached"
	codeReservationConflict = "reservation_conflict"
	codeReservationNotFound = "reservation_not_found"
	codeDuplicateHold       = "duplicate_reservation"
	codeHoldNotEligible     = "reservation_not_eligible"
	codeHoldNotActive       = "reservation_not_active"
	codeHoldExpired         = "hold_expired"
	codeNoAvailableCopies   = "no_available_copies"
	codeFineNotFound        = "fine_not_found"
	codeFineAlreadyPaid     = "fine_already_paid"
	codeMemberNameRequired  = "member_name_required"
	codeTitleNameRequired   = "title_name_required"
	codeBarcodeRequired     = "barcode_required"
	codeBarcodeTaken        = "barcode_taken"
	codeInvalidStatus       = "invalid_status"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
