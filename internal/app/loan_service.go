package app

import (
	"context"
	"time"

	"github.com/stacksapp/circulation/internal/clock"
	"github.com/stacksapp/circulation/internal/domain"
)

type LoanRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error)
	CountBorrowedLoans(ctx context.Context, memberID string) (int, error)
	GetCopyForUpdate(ctx context.Context, copyID string) (domain.Copy, error)
	CreateLoan(ctx context.Context, loan domain.Loan) error
	GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error)
	MarkLoanReturned(ctx context.Context, loanID string, returnedAt time.Time) error
	MarkLoanRenewed(ctx context.Context, loanID string, dueAt time.Time, renewals int) error
	UpdateCopyStatus(ctx context.Context, copyID string, status domain.CopyStatus) error
	ReleaseCopy(ctx context.Context, copyID string) error
	CountActiveReservations(ctx context.Context, titleID string) (int, error)
}

const (
	defaultLoanPeriod     = 14 * 24 * time.Hour
	defaultMaxRenewals    = 2
	defaultMaxActiveLoans = 5
)

type LoanService struct {
	repo           LoanRepository
	clock          clock.Clock
	audit          AuditSink
	newID          IDGenerator
	loanPeriod     time.Duration
	maxRenewals    int
	maxActiveLoans int
}

func NewLoanService(repo LoanRepository, clk clock.Clock, audit AuditSink, opts ...LoanServiceOption) *LoanService {
	if audit == nil {
		audit = NopAuditSink{}
	}
	svc := &LoanService{
		repo:           repo,
		clock:          clk,
		audit:          audit,
		newID:          newUUID,
		loanPeriod:     defaultLoanPeriod,
		maxRenewals:    defaultMaxRenewals,
		maxActiveLoans: defaultMaxActiveLoans,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type LoanServiceOption func(*LoanService)

// WithLoanPeriod overrides the default loan period for new and renewed loans.
func WithLoanPeriod(d time.Duration) LoanServiceOption {
	return func(s *LoanService) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

// WithMaxRenewals overrides how often a loan may be renewed.
func WithMaxRenewals(n int) LoanServiceOption {
	return func(s *LoanService) {
		if n >= 0 {
			s.maxRenewals = n
		}
	}
}

// WithMaxActiveLoans overrides the per-member active loan limit.
func WithMaxActiveLoans(n int) LoanServiceOption {
	return func(s *LoanService) {
		if n > 0 {
			s.maxActiveLoans = n
		}
	}
}

// WithLoanIDGenerator overrides ID allocation for new loans.
func WithLoanIDGenerator(gen IDGenerator) LoanServiceOption {
	return func(s *LoanService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

type BorrowInput struct {
	MemberID string
	CopyID   string
	StaffID  string
	// DueAt is optional; when zero the due date is now plus the loan period.
	DueAt time.Time
}

// Borrow issues a copy to a member. The member row is locked before the
// copy row so eligibility cannot be invalidated by a concurrent borrow,
// and the copy flip plus the loan insert are one atomic step.
func (s *LoanService) Borrow(ctx context.Context, in BorrowInput) (domain.Loan, error) {
	now := s.clock.Now()

	dueAt := in.DueAt
	if dueAt.IsZero() {
		dueAt = now.Add(s.loanPeriod)
	} else if dueAt.Before(now) {
		return domain.Loan{}, domain.ErrInvalidDueDate
	}

	var loan domain.Loan
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.checkEligibility(txCtx, in.MemberID); err != nil {
			return err
		}

		copyRec, err := s.repo.GetCopyForUpdate(txCtx, in.CopyID)
		if err != nil {
			return err
		}
		if copyRec.Status != domain.CopyStatusAvailable {
			return domain.ErrCopyUnavailable
		}

		loan = domain.Loan{
			ID:       s.newID(),
			MemberID: in.MemberID,
			CopyID:   in.CopyID,
			TitleID:  copyRec.TitleID,
			StaffID:  in.StaffID,
			Status:   domain.LoanStatusBorrowed,
			LoanedAt: now,
			DueAt:    dueAt,
		}
		if err := s.repo.CreateLoan(txCtx, loan); err != nil {
			return err
		}
		return s.repo.UpdateCopyStatus(txCtx, in.CopyID, domain.CopyStatusBorrowed)
	})
	if err != nil {
		return domain.Loan{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    in.StaffID,
		Action:     "loan.borrowed",
		EntityType: "loan",
		EntityID:   loan.ID,
		Details:    map[string]any{"member_id": in.MemberID, "copy_id": in.CopyID, "due_at": dueAt},
		OccurredAt: now,
	})
	return loan, nil
}

// Return closes a borrowed loan and releases its copy. A second return of
// the same loan fails with ErrLoanAlreadyReturned and leaves the copy alone.
func (s *LoanService) Return(ctx context.Context, loanID string) (domain.Loan, error) {
	now := s.clock.Now()

	var loan domain.Loan
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		loan, err = s.repo.GetLoanForUpdate(txCtx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanStatusBorrowed {
			return domain.ErrLoanAlreadyReturned
		}

		if err := s.repo.MarkLoanReturned(txCtx, loanID, now); err != nil {
			return err
		}
		// ReleaseCopy only flips borrowed -> available, so a copy already
		// reported lost stays lost.
		if err := s.repo.ReleaseCopy(txCtx, loan.CopyID); err != nil {
			return err
		}
		loan.Status = domain.LoanStatusReturned
		loan.ReturnedAt = &now
		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    loan.StaffID,
		Action:     "loan.returned",
		EntityType: "loan",
		EntityID:   loan.ID,
		Details:    map[string]any{"member_id": loan.MemberID, "copy_id": loan.CopyID},
		OccurredAt: now,
	})
	return loan, nil
}

// Renew extends a loan's due date by one loan period, counted from the
// prior due date. Renewal is refused while any active reservation exists
// for the loan's title so a waiting queue is never starved.
func (s *LoanService) Renew(ctx context.Context, loanID string) (domain.Loan, error) {
	now := s.clock.Now()

	var loan domain.Loan
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		loan, err = s.repo.GetLoanForUpdate(txCtx, loanID)
		if err != nil {
			return err
		}
		if loan.Status != domain.LoanStatusBorrowed {
			return domain.ErrLoanAlreadyReturned
		}
		if loan.Renewals >= s.maxRenewals {
			return domain.ErrRenewalLimitReached
		}

		member, err := s.repo.GetMemberForUpdate(txCtx, loan.MemberID)
		if err != nil {
			return err
		}
		if member.Status == domain.MemberStatusLocked {
			return domain.ErrMemberLocked
		}

		active, err := s.repo.CountActiveReservations(txCtx, loan.TitleID)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrReservationConflict
		}

		loan.DueAt = loan.DueAt.Add(s.loanPeriod)
		loan.Renewals++
		return s.repo.MarkLoanRenewed(txCtx, loanID, loan.DueAt, loan.Renewals)
	})
	if err != nil {
		return domain.Loan{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    loan.MemberID,
		Action:     "loan.renewed",
		EntityType: "loan",
		EntityID:   loan.ID,
		Details:    map[string]any{"due_at": loan.DueAt, "renewals": loan.Renewals},
		OccurredAt: now,
	})
	return loan, nil
}

// checkEligibility implements the membership gate: the member must exist,
// be active and hold fewer than the maximum number of borrowed loans. It
// locks the member row, so it must run inside a transaction.
func (s *LoanService) checkEligibility(ctx context.Context, memberID string) error {
	member, err := s.repo.GetMemberForUpdate(ctx, memberID)
	if err != nil {
		return err
	}
	if member.Status == domain.MemberStatusLocked {
		return domain.ErrMemberLocked
	}

	count, err := s.repo.CountBorrowedLoans(ctx, memberID)
	if err != nil {
		return err
	}
	if count >= s.maxActiveLoans {
		return domain.ErrLoanLimitReached
	}
	return nil
}
