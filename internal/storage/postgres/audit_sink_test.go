package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stacksapp/circulation/internal/domain"
	"github.com/stacksapp/circulation/internal/testutil"
)

func TestAuditSink_Record(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	sink := NewAuditSink(pool, nil)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	now := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	sink.Record(ctx, domain.AuditEntry{
		ActorID:    "staff-1",
		Action:     "loan.borrowed",
		EntityType: "loan",
		EntityID:   "loan-1",
		Details:    map[string]any{"member_id": "m1", "copy_id": "c1"},
		OccurredAt: now,
	})

	var (
		action  string
		details map[string]any
	)
	if err := pool.QueryRow(ctx,
		`SELECT action, details FROM audit_logs WHERE entity_id = $1`, "loan-1",
	).Scan(&action, &details); err != nil {
		t.Fatalf("query audit log: %v", err)
	}
	if action != "loan.borrowed" {
		t.Fatalf("expected action loan.borrowed, got %s", action)
	}
	if details["member_id"] != "m1" {
		t.Fatalf("expected member_id in details, got %v", details)
	}
}
