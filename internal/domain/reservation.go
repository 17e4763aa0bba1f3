package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a member's queued claim on the next available copy of a
// title. Among a title's active reservations the positions are dense,
// 1-based and unique; only position 1 may be fulfilled.
type Reservation struct {
	ID         string
	TitleID    string
	MemberID   string
	Status     ReservationStatus
	Position   int
	ReservedAt time.Time
	ExpiresAt  time.Time
	// LoanID links the loan created on fulfillment; nil otherwise.
	LoanID *string
}
