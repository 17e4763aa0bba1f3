package app

import (
	"context"
	"time"

	"github.com/stacksapp/circulation/internal/clock"
	"github.com/stacksapp/circulation/internal/domain"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error)
	GetTitleForUpdate(ctx context.Context, titleID string) (domain.Title, error)
	FindActiveReservation(ctx context.Context, titleID, memberID string) (*domain.Reservation, error)
	MaxActivePosition(ctx context.Context, titleID string) (int, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error)
	CountBorrowedLoans(ctx context.Context, memberID string) (int, error)
	AcquireAvailableCopy(ctx context.Context, titleID string) (domain.Copy, error)
	CreateLoan(ctx context.Context, loan domain.Loan) error
	UpdateCopyStatus(ctx context.Context, copyID string, status domain.CopyStatus) error
	MarkFulfilled(ctx context.Context, reservationID, loanID string) error
	MarkCancelled(ctx context.Context, reservationID string) error
	CompactPositions(ctx context.Context, titleID string, abovePosition int) error
}

// A reservation stays fulfillable for a week before the hold lapses.
const defaultHoldWindow = 7 * 24 * time.Hour

type ReservationService struct {
	repo           ReservationRepository
	clock          clock.Clock
	audit          AuditSink
	newID          IDGenerator
	holdWindow     time.Duration
	loanPeriod     time.Duration
	maxActiveLoans int
}

func NewReservationService(repo ReservationRepository, clk clock.Clock, audit AuditSink, opts ...ReservationServiceOption) *ReservationService {
	if audit == nil {
		audit = NopAuditSink{}
	}
	svc := &ReservationService{
		repo:           repo,
		clock:          clk,
		audit:          audit,
		newID:          newUUID,
		holdWindow:     defaultHoldWindow,
		loanPeriod:     defaultLoanPeriod,
		maxActiveLoans: defaultMaxActiveLoans,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithHoldWindow overrides how long a reservation stays fulfillable.
func WithHoldWindow(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdWindow = d
		}
	}
}

// WithFulfillLoanPeriod overrides the period of loans created on fulfillment.
func WithFulfillLoanPeriod(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

// WithFulfillLoanLimit overrides the per-member loan limit checked on fulfillment.
func WithFulfillLoanLimit(n int) ReservationServiceOption {
	return func(s *ReservationService) {
		if n > 0 {
			s.maxActiveLoans = n
		}
	}
}

// WithReservationIDGenerator overrides ID allocation for new reservations.
func WithReservationIDGenerator(gen IDGenerator) ReservationServiceOption {
	return func(s *ReservationService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

type ReserveInput struct {
	TitleID  string
	MemberID string
}

// Reserve appends the member to the tail of the title's waitlist. The
// title row lock serializes all queue mutations for that title, so two
// concurrent reserves cannot compute the same position.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	now := s.clock.Now()

	var res domain.Reservation
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetMember(txCtx, in.MemberID); err != nil {
			return err
		}
		if _, err := s.repo.GetTitleForUpdate(txCtx, in.TitleID); err != nil {
			return err
		}

		existing, err := s.repo.FindActiveReservation(txCtx, in.TitleID, in.MemberID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateReservation
		}

		maxPos, err := s.repo.MaxActivePosition(txCtx, in.TitleID)
		if err != nil {
			return err
		}

		res = domain.Reservation{
			ID:         s.newID(),
			TitleID:    in.TitleID,
			MemberID:   in.MemberID,
			Status:     domain.ReservationStatusActive,
			Position:   maxPos + 1,
			ReservedAt: now,
			ExpiresAt:  now.Add(s.holdWindow),
		}
		return s.repo.CreateReservation(txCtx, res)
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    in.MemberID,
		Action:     "reservation.created",
		EntityType: "reservation",
		EntityID:   res.ID,
		Details:    map[string]any{"title_id": in.TitleID, "position": res.Position},
		OccurredAt: now,
	})
	return res, nil
}

type FulfillInput struct {
	ReservationID string
	StaffID       string
}

type FulfillResult struct {
	Reservation domain.Reservation
	Loan        domain.Loan
}

// Fulfill promotes the head of a title's queue into a loan. Only the
// reservation at position 1 is eligible; the hold deadline is checked
// lazily here, and an expired reservation is refused but left active.
// Trailing active positions are compacted by one so the queue stays dense.
func (s *ReservationService) Fulfill(ctx context.Context, in FulfillInput) (FulfillResult, error) {
	now := s.clock.Now()

	var result FulfillResult
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusActive || res.Position != 1 {
			return domain.ErrReservationNotEligible
		}
		if now.After(res.ExpiresAt) {
			return domain.ErrHoldExpired
		}

		// Serializes against Reserve and Cancel on the same title.
		if _, err := s.repo.GetTitleForUpdate(txCtx, res.TitleID); err != nil {
			return err
		}

		member, err := s.repo.GetMemberForUpdate(txCtx, res.MemberID)
		if err != nil {
			return err
		}
		if member.Status == domain.MemberStatusLocked {
			return domain.ErrMemberLocked
		}
		borrowed, err := s.repo.CountBorrowedLoans(txCtx, res.MemberID)
		if err != nil {
			return err
		}
		if borrowed >= s.maxActiveLoans {
			return domain.ErrLoanLimitReached
		}

		copyRec, err := s.repo.AcquireAvailableCopy(txCtx, res.TitleID)
		if err != nil {
			return err
		}

		loan := domain.Loan{
			ID:       s.newID(),
			MemberID: res.MemberID,
			CopyID:   copyRec.ID,
			TitleID:  res.TitleID,
			StaffID:  in.StaffID,
			Status:   domain.LoanStatusBorrowed,
			LoanedAt: now,
			DueAt:    now.Add(s.loanPeriod),
		}
		if err := s.repo.CreateLoan(txCtx, loan); err != nil {
			return err
		}
		if err := s.repo.UpdateCopyStatus(txCtx, copyRec.ID, domain.CopyStatusBorrowed); err != nil {
			return err
		}
		if err := s.repo.MarkFulfilled(txCtx, res.ID, loan.ID); err != nil {
			return err
		}
		if err := s.repo.CompactPositions(txCtx, res.TitleID, res.Position); err != nil {
			return err
		}

		res.Status = domain.ReservationStatusFulfilled
		res.LoanID = &loan.ID
		result = FulfillResult{Reservation: res, Loan: loan}
		return nil
	})
	if err != nil {
		return FulfillResult{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    in.StaffID,
		Action:     "reservation.fulfilled",
		EntityType: "reservation",
		EntityID:   result.Reservation.ID,
		Details:    map[string]any{"loan_id": result.Loan.ID, "copy_id": result.Loan.CopyID},
		OccurredAt: now,
	})
	return result, nil
}

// Cancel terminates an active reservation. Compaction applies to every
// cancelled position, not just the head, so the dense-position invariant
// survives a mid-queue cancellation.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) (domain.Reservation, error) {
	now := s.clock.Now()

	var res domain.Reservation
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = s.repo.GetReservationForUpdate(txCtx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationStatusActive {
			return domain.ErrReservationNotActive
		}

		if _, err := s.repo.GetTitleForUpdate(txCtx, res.TitleID); err != nil {
			return err
		}
		if err := s.repo.MarkCancelled(txCtx, res.ID); err != nil {
			return err
		}
		if err := s.repo.CompactPositions(txCtx, res.TitleID, res.Position); err != nil {
			return err
		}
		res.Status = domain.ReservationStatusCancelled
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    res.MemberID,
		Action:     "reservation.cancelled",
		EntityType: "reservation",
		EntityID:   res.ID,
		Details:    map[string]any{"title_id": res.TitleID, "position": res.Position},
		OccurredAt: now,
	})
	return res, nil
}
