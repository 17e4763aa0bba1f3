package domain

import "time"

// AuditEntry is a fire-and-forget record of a consequential state
// transition. Writing one is best-effort and must never abort the
// business transaction it describes.
type AuditEntry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	OccurredAt time.Time
}
