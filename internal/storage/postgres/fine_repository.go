package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stacksapp/circulation/internal/domain"
)

type FineRepository struct {
	pool *pgxpool.Pool
}

func NewFineRepository(pool *pgxpool.Pool) *FineRepository {
	return &FineRepository{pool: pool}
}

func (r *FineRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *FineRepository) GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error) {
	const query = `
SELECT id, member_id, copy_id, staff_id, status, loaned_at, due_at, returned_at, renewals
FROM loans
WHERE id = $1
FOR UPDATE`

	var l domain.Loan
	err := r.queryRow(ctx, query, loanID).Scan(
		&l.ID, &l.MemberID, &l.CopyID, &l.StaffID,
		&l.Status, &l.LoanedAt, &l.DueAt, &l.ReturnedAt, &l.Renewals,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Loan{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Loan{}, domain.ErrLoanNotFound
		}
		return domain.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

func (r *FineRepository) GetCopyForUpdate(ctx context.Context, copyID string) (domain.Copy, error) {
	const query = `SELECT id, title_id, barcode, status, created_at FROM copies WHERE id = $1 FOR UPDATE`

	var c domain.Copy
	err := r.queryRow(ctx, query, copyID).Scan(&c.ID, &c.TitleID, &c.Barcode, &c.Status, &c.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Copy{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Copy{}, domain.ErrCopyNotFound
		}
		return domain.Copy{}, fmt.Errorf("get copy: %w", err)
	}
	return c, nil
}

func (r *FineRepository) UpdateCopyStatus(ctx context.Context, copyID string, status domain.CopyStatus) error {
	const stmt = `UPDATE copies SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, copyID, status)
	if err != nil {
		return fmt.Errorf("update copy status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCopyNotFound
	}
	return nil
}

func (r *FineRepository) LoanExists(ctx context.Context, loanID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`

	var exists bool
	if err := r.queryRow(ctx, query, loanID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("loan exists: %w", err)
	}
	return exists, nil
}

func (r *FineRepository) CreateFine(ctx context.Context, fine domain.Fine) error {
	const stmt = `
INSERT INTO fines (id, loan_id, member_id, amount_cents, kind, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		fine.ID,
		fine.LoanID,
		fine.MemberID,
		fine.AmountCents,
		fine.Kind,
		fine.Status,
		fine.CreatedAt,
	)
	if err != nil {
		// Two FKs can fire here; the constraint name tells them apart.
		if isForeignKeyViolation(err) {
			if strings.Contains(violatedConstraint(err), "member_id") {
				return domain.ErrMemberNotFound
			}
			return domain.ErrLoanNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create fine: %w", err)
	}
	return nil
}

func (r *FineRepository) GetFineForUpdate(ctx context.Context, fineID string) (domain.Fine, error) {
	const query = `
SELECT id, loan_id, member_id, amount_cents, kind, status, created_at, paid_at
FROM fines
WHERE id = $1
FOR UPDATE`

	var f domain.Fine
	err := r.queryRow(ctx, query, fineID).Scan(
		&f.ID, &f.LoanID, &f.MemberID, &f.AmountCents,
		&f.Kind, &f.Status, &f.CreatedAt, &f.PaidAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Fine{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Fine{}, domain.ErrFineNotFound
		}
		return domain.Fine{}, fmt.Errorf("get fine: %w", err)
	}
	return f, nil
}

func (r *FineRepository) MarkFinePaid(ctx context.Context, fineID string, paidAt time.Time) error {
	const stmt = `UPDATE fines SET status = 'paid', paid_at = $2 WHERE id = $1 AND status = 'reported'`

	tag, err := r.exec(ctx, stmt, fineID, paidAt)
	if err != nil {
		return fmt.Errorf("mark fine paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFineAlreadyPaid
	}
	return nil
}

func (r *FineRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *FineRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
