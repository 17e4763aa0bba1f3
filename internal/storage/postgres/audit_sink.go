package postgres

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/stacksapp/circulation/internal/domain"
)

// AuditSink appends audit entries to the audit_logs table. Writes are
// best-effort: failures are logged and swallowed so they can never roll
// back the business transaction they describe.
type AuditSink struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewAuditSink(pool *pgxpool.Pool, logger *log.Logger) *AuditSink {
	if logger == nil {
		logger = log.Default()
	}
	return &AuditSink{pool: pool, logger: logger}
}

func (s *AuditSink) Record(ctx context.Context, entry domain.AuditEntry) {
	const stmt = `
INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	details, err := jsoniter.ConfigFastest.Marshal(entry.Details)
	if err != nil {
		s.logger.Printf("WARN: audit marshal failed action=%s entity=%s: %v", entry.Action, entry.EntityID, err)
		details = []byte(`{}`)
	}

	if _, err := s.pool.Exec(ctx, stmt,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		details,
		entry.OccurredAt,
	); err != nil {
		s.logger.Printf("WARN: audit write failed action=%s entity=%s: %v", entry.Action, entry.EntityID, err)
	}
}
