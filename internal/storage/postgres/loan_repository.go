package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stacksapp/circulation/internal/domain"
)

type LoanRepository struct {
	pool *pgxpool.Pool
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

func (r *LoanRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *LoanRepository) GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error) {
	const query = `SELECT id, name, email, status, created_at FROM members WHERE id = $1 FOR UPDATE`

	var m domain.Member
	err := r.queryRow(ctx, query, memberID).Scan(&m.ID, &m.Name, &m.Email, &m.Status, &m.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Member{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *LoanRepository) CountBorrowedLoans(ctx context.Context, memberID string) (int, error) {
	const query = `SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status = 'borrowed'`

	var count int
	if err := r.queryRow(ctx, query, memberID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count borrowed loans: %w", err)
	}
	return count, nil
}

func (r *LoanRepository) GetCopyForUpdate(ctx context.Context, copyID string) (domain.Copy, error) {
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

func (r *LoanRepository) CreateLoan(ctx context.Context, loan domain.Loan) error {
	const stmt = `
INSERT INTO loans (id, member_id, copy_id, staff_id, status, loaned_at, due_at, renewals)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		loan.ID,
		loan.MemberID,
		loan.CopyID,
		loan.StaffID,
		loan.Status,
		loan.LoanedAt,
		loan.DueAt,
		loan.Renewals,
	)
	if err != nil {
		// The partial unique index on borrowed loans per copy backstops the
		// availability check.
		if isUniqueViolation(err) {
			return domain.ErrCopyUnavailable
		}
		if isForeignKeyViolation(err) {
			return domain.ErrMemberNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error) {
	const query = `
SELECT l.id, l.member_id, l.copy_id, c.title_id, l.staff_id, l.status, l.loaned_at, l.due_at, l.returned_at, l.renewals
FROM loans l
JOIN copies c ON c.id = l.copy_id
WHERE l.id = $1
FOR UPDATE OF l`

	var l domain.Loan
	err := r.queryRow(ctx, query, loanID).Scan(
		&l.ID, &l.MemberID, &l.CopyID, &l.TitleID, &l.StaffID,
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

func (r *LoanRepository) MarkLoanReturned(ctx context.Context, loanID string, returnedAt time.Time) error {
	const stmt = `UPDATE loans SET status = 'returned', returned_at = $2 WHERE id = $1 AND status = 'borrowed'`

	tag, err := r.exec(ctx, stmt, loanID, returnedAt)
	if err != nil {
		return fmt.Errorf("mark loan returned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanAlreadyReturned
	}
	return nil
}

func (r *LoanRepository) MarkLoanRenewed(ctx context.Context, loanID string, dueAt time.Time, renewals int) error {
	const stmt = `UPDATE loans SET due_at = $2, renewals = $3 WHERE id = $1 AND status = 'borrowed'`

	tag, err := r.exec(ctx, stmt, loanID, dueAt, renewals)
	if err != nil {
		return fmt.Errorf("mark loan renewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) UpdateCopyStatus(ctx context.Context, copyID string, status domain.CopyStatus) error {
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

// ReleaseCopy flips a copy back to available only from borrowed, so a
// racing double return or a lost copy is never resurrected.
func (r *LoanRepository) ReleaseCopy(ctx context.Context, copyID string) error {
	const stmt = `UPDATE copies SET status = 'available' WHERE id = $1 AND status = 'borrowed'`

	if _, err := r.exec(ctx, stmt, copyID); err != nil {
		return fmt.Errorf("release copy: %w", err)
	}
	return nil
}

func (r *LoanRepository) CountActiveReservations(ctx context.Context, titleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM reservations WHERE title_id = $1 AND status = 'active'`

	var count int
	if err := r.queryRow(ctx, query, titleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active reservations: %w", err)
	}
	return count, nil
}

func (r *LoanRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LoanRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
