package domain

import "time"

type MemberStatus string

const (
	MemberStatusActive MemberStatus = "active"
	MemberStatusLocked MemberStatus = "locked"
)

// Member is a registered library patron. Borrowing and renewal are
// gated on Status being active.
type Member struct {
	ID        string
	Name      string
	Email     string
	Status    MemberStatus
	CreatedAt time.Time
}

func ValidMemberStatus(s string) bool {
	switch MemberStatus(s) {
	case MemberStatusActive, MemberStatusLocked:
		return true
	}
	return false
}
