package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stacksapp/circulation/internal/domain"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateMember(ctx context.Context, member domain.Member) error {
	const stmt = `INSERT INTO members (id, name, email, status, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, member.ID, member.Name, member.Email, member.Status, member.CreatedAt)
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListMembers(ctx context.Context) ([]domain.Member, error) {
	const query = `SELECT id, name, email, status, created_at FROM members ORDER BY created_at`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *CatalogRepository) UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error {
	const stmt = `UPDATE members SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, memberID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update member status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *CatalogRepository) CreateTitle(ctx context.Context, title domain.Title) error {
	const stmt = `INSERT INTO titles (id, name, author, isbn, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, title.ID, title.Name, title.Author, title.ISBN, title.CreatedAt)
	if err != nil {
		return fmt.Errorf("create title: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListTitles(ctx context.Context) ([]domain.Title, error) {
	const query = `SELECT id, name, author, isbn, created_at FROM titles ORDER BY created_at`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []domain.Title
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.Author, &t.ISBN, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (r *CatalogRepository) CreateCopy(ctx context.Context, c domain.Copy) error {
	const stmt = `INSERT INTO copies (id, title_id, barcode, status, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, c.ID, c.TitleID, c.Barcode, c.Status, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBarcodeTaken
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTitleNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create copy: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListCopiesByTitle(ctx context.Context, titleID string) ([]domain.Copy, error) {
	const query = `SELECT id, title_id, barcode, status, created_at FROM copies WHERE title_id = $1 ORDER BY created_at`

	rows, err := r.query(ctx, query, titleID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list copies: %w", err)
	}
	defer rows.Close()

	var copies []domain.Copy
	for rows.Next() {
		var c domain.Copy
		if err := rows.Scan(&c.ID, &c.TitleID, &c.Barcode, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan copy: %w", err)
		}
		copies = append(copies, c)
	}
	return copies, rows.Err()
}

func (r *CatalogRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CatalogRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
