package app

import "github.com/google/uuid"

// IDGenerator allocates identifiers for new records. Uniqueness is still
// owed to the database's unique constraints, not to the generator.
type IDGenerator func() string

func newUUID() string {
	return uuid.NewString()
}
