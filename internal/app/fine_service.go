package app

import (
	"context"
	"time"

	"github.com/stacksapp/circulation/internal/clock"
	"github.com/stacksapp/circulation/internal/domain"
)

type FineRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error)
	GetCopyForUpdate(ctx context.Context, copyID string) (domain.Copy, error)
	UpdateCopyStatus(ctx context.Context, copyID string, status domain.CopyStatus) error
	LoanExists(ctx context.Context, loanID string) (bool, error)
	CreateFine(ctx context.Context, fine domain.Fine) error
	GetFineForUpdate(ctx context.Context, fineID string) (domain.Fine, error)
	MarkFinePaid(ctx context.Context, fineID string, paidAt time.Time) error
}

type FineService struct {
	repo  FineRepository
	clock clock.Clock
	audit AuditSink
	newID IDGenerator
}

func NewFineService(repo FineRepository, clk clock.Clock, audit AuditSink, opts ...FineServiceOption) *FineService {
	if audit == nil {
		audit = NopAuditSink{}
	}
	svc := &FineService{
		repo:  repo,
		clock: clk,
		audit: audit,
		newID: newUUID,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type FineServiceOption func(*FineService)

// WithFineIDGenerator overrides ID allocation for new fines.
func WithFineIDGenerator(gen IDGenerator) FineServiceOption {
	return func(s *FineService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

type ReportLostInput struct {
	LoanID      string
	CopyID      string
	MemberID    string
	AmountCents int64
	StaffID     string
}

// ReportLost records a lost-item compensation and removes the copy from
// circulation permanently. The loan keeps its borrowed status; closing it
// stays a separate staff action.
func (s *FineService) ReportLost(ctx context.Context, in ReportLostInput) (domain.Fine, error) {
	if in.AmountCents <= 0 {
		return domain.Fine{}, domain.ErrInvalidAmount
	}
	now := s.clock.Now()

	var fine domain.Fine
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.repo.GetLoanForUpdate(txCtx, in.LoanID)
		if err != nil {
			return err
		}
		copyRec, err := s.repo.GetCopyForUpdate(txCtx, in.CopyID)
		if err != nil {
			return err
		}
		if loan.CopyID != copyRec.ID {
			return domain.ErrCopyNotFound
		}

		fine = domain.Fine{
			ID:          s.newID(),
			LoanID:      in.LoanID,
			MemberID:    in.MemberID,
			AmountCents: in.AmountCents,
			Kind:        domain.FineKindLost,
			Status:      domain.FineStatusReported,
			CreatedAt:   now,
		}
		if err := s.repo.CreateFine(txCtx, fine); err != nil {
			return err
		}
		return s.repo.UpdateCopyStatus(txCtx, in.CopyID, domain.CopyStatusLost)
	})
	if err != nil {
		return domain.Fine{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    in.StaffID,
		Action:     "copy.lost",
		EntityType: "fine",
		EntityID:   fine.ID,
		Details:    map[string]any{"loan_id": in.LoanID, "copy_id": in.CopyID, "amount_cents": in.AmountCents},
		OccurredAt: now,
	})
	return fine, nil
}

type CreateFineInput struct {
	LoanID      string
	MemberID    string
	AmountCents int64
}

// CreateFine records an overdue charge against an existing loan.
func (s *FineService) CreateFine(ctx context.Context, in CreateFineInput) (domain.Fine, error) {
	if in.AmountCents <= 0 {
		return domain.Fine{}, domain.ErrInvalidAmount
	}
	now := s.clock.Now()

	var fine domain.Fine
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.LoanExists(txCtx, in.LoanID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrLoanNotFound
		}

		fine = domain.Fine{
			ID:          s.newID(),
			LoanID:      in.LoanID,
			MemberID:    in.MemberID,
			AmountCents: in.AmountCents,
			Kind:        domain.FineKindOverdue,
			Status:      domain.FineStatusReported,
			CreatedAt:   now,
		}
		return s.repo.CreateFine(txCtx, fine)
	})
	if err != nil {
		return domain.Fine{}, err
	}
	return fine, nil
}

// PayFine settles a reported fine. Paying twice fails with ErrFineAlreadyPaid.
func (s *FineService) PayFine(ctx context.Context, fineID string) (domain.Fine, error) {
	now := s.clock.Now()

	var fine domain.Fine
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		fine, err = s.repo.GetFineForUpdate(txCtx, fineID)
		if err != nil {
			return err
		}
		if fine.Status == domain.FineStatusPaid {
			return domain.ErrFineAlreadyPaid
		}
		if err := s.repo.MarkFinePaid(txCtx, fineID, now); err != nil {
			return err
		}
		fine.Status = domain.FineStatusPaid
		fine.PaidAt = &now
		return nil
	})
	if err != nil {
		return domain.Fine{}, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:    fine.MemberID,
		Action:     "fine.paid",
		EntityType: "fine",
		EntityID:   fine.ID,
		Details:    map[string]any{"amount_cents": fine.AmountCents},
		OccurredAt: now,
	})
	return fine, nil
}
