package domain

import "errors"

var (
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidDueDate = errors.New("due date must not be in the past")
	ErrInvalidAmount  = errors.New("amount must be positive")

	ErrMemberNotFound   = errors.New("member not found")
	ErrMemberLocked     = errors.New("member is locked")
	ErrLoanLimitReached = errors.New("active loan limit reached")

	ErrTitleNotFound   = errors.New("title not found")
	ErrCopyNotFound    = errors.New("copy not found")
	ErrCopyUnavailable = errors.New("copy is not available")

	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanAlreadyReturned = errors.New("loan already returned")
	ErrRenewalLimitReached = errors.New("renewal limit reached")
	ErrReservationConflict = errors.New("title has active reservations")

	ErrReservationNotFound    = errors.New("reservation not found")
	ErrDuplicateReservation   = errors.New("member already has an active reservation for this title")
	ErrReservationNotEligible = errors.New("reservation is not next in queue")
	ErrReservationNotActive   = errors.New("reservation is not active")
	ErrHoldExpired            = errors.New("hold window expired")
	ErrNoAvailableCopies      = errors.New("no available copies")

	ErrFineNotFound    = errors.New("fine not found")
	ErrFineAlreadyPaid = errors.New("fine already paid")

	ErrMemberNameRequired = errors.New("member name required")
	ErrTitleNameRequired  = errors.New("title name required")
	ErrBarcodeRequired    = errors.New("copy barcode required")
	ErrBarcodeTaken       = errors.New("copy barcode already in use")
	ErrInvalidStatus      = errors.New("invalid member status")
)
