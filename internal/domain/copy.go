package domain

import "time"

type CopyStatus string

const (
	CopyStatusAvailable CopyStatus = "available"
	CopyStatusBorrowed  CopyStatus = "borrowed"
	CopyStatusLost      CopyStatus = "lost"
)

// Copy is one physical circulating unit of a Title. A copy is borrowed
// exactly when one borrowed loan references it; lost is terminal.
type Copy struct {
	ID        string
	TitleID   string
	Barcode   string
	Status    CopyStatus
	CreatedAt time.Time
}
