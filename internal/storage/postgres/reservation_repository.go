package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stacksapp/circulation/internal/domain"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ReservationRepository) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	const query = `SELECT id, name, email, status, created_at FROM members WHERE id = $1`
	return r.scanMember(r.queryRow(ctx, query, memberID))
}

func (r *ReservationRepository) GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error) {
	const query = `SELECT id, name, email, status, created_at FROM members WHERE id = $1 FOR UPDATE`
	return r.scanMember(r.queryRow(ctx, query, memberID))
}

func (r *ReservationRepository) scanMember(row pgx.Row) (domain.Member, error) {
	var m domain.Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Status, &m.CreatedAt)
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

// GetTitleForUpdate locks the title row, which serializes every queue
// mutation (reserve, fulfill, cancel) for that title.
func (r *ReservationRepository) GetTitleForUpdate(ctx context.Context, titleID string) (domain.Title, error) {
	const query = `SELECT id, name, author, isbn, created_at FROM titles WHERE id = $1 FOR UPDATE`

	var t domain.Title
	err := r.queryRow(ctx, query, titleID).Scan(&t.ID, &t.Name, &t.Author, &t.ISBN, &t.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Title{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Title{}, domain.ErrTitleNotFound
		}
		return domain.Title{}, fmt.Errorf("get title: %w", err)
	}
	return t, nil
}

func (r *ReservationRepository) FindActiveReservation(ctx context.Context, titleID, memberID string) (*domain.Reservation, error) {
	const query = `
SELECT id, title_id, member_id, status, position, reserved_at, expires_at, loan_id
FROM reservations
WHERE title_id = $1 AND member_id = $2 AND status = 'active'`

	var res domain.Reservation
	err := r.queryRow(ctx, query, titleID, memberID).Scan(
		&res.ID, &res.TitleID, &res.MemberID, &res.Status,
		&res.Position, &res.ReservedAt, &res.ExpiresAt, &res.LoanID,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active reservation: %w", err)
	}
	return &res, nil
}

func (r *ReservationRepository) MaxActivePosition(ctx context.Context, titleID string) (int, error) {
	const query = `SELECT COALESCE(MAX(position), 0) FROM reservations WHERE title_id = $1 AND status = 'active'`

	var max int
	if err := r.queryRow(ctx, query, titleID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max active position: %w", err)
	}
	return max, nil
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, title_id, member_id, status, position, reserved_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.TitleID,
		res.MemberID,
		res.Status,
		res.Position,
		res.ReservedAt,
		res.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReservation
		}
		if isForeignKeyViolation(err) {
			return domain.ErrMemberNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error) {
	const query = `
SELECT id, title_id, member_id, status, position, reserved_at, expires_at, loan_id
FROM reservations
WHERE id = $1
FOR UPDATE`

	var res domain.Reservation
	err := r.queryRow(ctx, query, reservationID).Scan(
		&res.ID, &res.TitleID, &res.MemberID, &res.Status,
		&res.Position, &res.ReservedAt, &res.ExpiresAt, &res.LoanID,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) CountBorrowedLoans(ctx context.Context, memberID string) (int, error) {
	const query = `SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status = 'borrowed'`

	var count int
	if err := r.queryRow(ctx, query, memberID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count borrowed loans: %w", err)
	}
	return count, nil
}

// AcquireAvailableCopy locks one available copy of the title. Oldest copy
// first keeps the pick deterministic.
func (r *ReservationRepository) AcquireAvailableCopy(ctx context.Context, titleID string) (domain.Copy, error) {
	const query = `
SELECT id, title_id, barcode, status, created_at
FROM copies
WHERE title_id = $1 AND status = 'available'
ORDER BY created_at, id
LIMIT 1
FOR UPDATE`

	var c domain.Copy
	err := r.queryRow(ctx, query, titleID).Scan(&c.ID, &c.TitleID, &c.Barcode, &c.Status, &c.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Copy{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Copy{}, domain.ErrNoAvailableCopies
		}
		return domain.Copy{}, fmt.Errorf("acquire available copy: %w", err)
	}
	return c, nil
}

func (r *ReservationRepository) CreateLoan(ctx context.Context, loan domain.Loan) error {
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
		if isUniqueViolation(err) {
			return domain.ErrCopyUnavailable
		}
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

func (r *ReservationRepository) UpdateCopyStatus(ctx context.Context, copyID string, status domain.CopyStatus) error {
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

func (r *ReservationRepository) MarkFulfilled(ctx context.Context, reservationID, loanID string) error {
	const stmt = `UPDATE reservations SET status = 'fulfilled', loan_id = $2 WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, reservationID, loanID)
	if err != nil {
		return fmt.Errorf("mark reservation fulfilled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotActive
	}
	return nil
}

func (r *ReservationRepository) MarkCancelled(ctx context.Context, reservationID string) error {
	const stmt = `UPDATE reservations SET status = 'cancelled' WHERE id = $1 AND status = 'active'`

	tag, err := r.exec(ctx, stmt, reservationID)
	if err != nil {
		return fmt.Errorf("mark reservation cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotActive
	}
	return nil
}

// CompactPositions shifts every active reservation behind the vacated
// position down by one, keeping positions dense. Callers hold the title
// row lock.
func (r *ReservationRepository) CompactPositions(ctx context.Context, titleID string, abovePosition int) error {
	const stmt = `
UPDATE reservations
SET position = position - 1
WHERE title_id = $1 AND status = 'active' AND position > $2`

	if _, err := r.exec(ctx, stmt, titleID, abovePosition); err != nil {
		return fmt.Errorf("compact positions: %w", err)
	}
	return nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
