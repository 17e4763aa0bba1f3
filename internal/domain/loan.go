package domain

import "time"

type LoanStatus string

const (
	LoanStatusBorrowed LoanStatus = "borrowed"
	LoanStatusReturned LoanStatus = "returned"
)

// Loan records a Copy lent to a Member for a bounded period.
// ReturnedAt is set exactly when Status is returned; the due date only
// ever moves forward (renewal), never back.
type Loan struct {
	ID       string
	MemberID string
	CopyID   string
	// TitleID is resolved through the copy on reads that join it; loans
	// themselves reference only the copy.
	TitleID    string
	StaffID    string
	Status     LoanStatus
	LoanedAt   time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Renewals   int
}
