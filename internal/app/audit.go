package app

import (
	"context"

	"github.com/stacksapp/circulation/internal/domain"
)

// AuditSink receives a record of each consequential state transition.
// Implementations are best-effort: recording happens after the business
// transaction commits and a failed write is never surfaced to the caller.
type AuditSink interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// NopAuditSink discards all entries.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, domain.AuditEntry) {}
