package domain

import "time"

type FineKind string

const (
	FineKindOverdue FineKind = "overdue"
	FineKindLost    FineKind = "lost"
)

type FineStatus string

const (
	FineStatusReported FineStatus = "reported"
	FineStatusPaid     FineStatus = "paid"
)

// Fine is a monetary consequence derived from a loan outcome: an overdue
// charge or a lost-item compensation.
type Fine struct {
	ID          string
	LoanID      string
	MemberID    string
	AmountCents int64
	Kind        FineKind
	Status      FineStatus
	CreatedAt   time.Time
	PaidAt      *time.Time
}
