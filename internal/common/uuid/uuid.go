// Package uuid provides UUID functionality with UUIDv7 (time-ordered UUIDs)
// as the default. It wraps github.com/google/uuid so tenant IDs sort by
// creation time.
package uuid

import (
	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID.
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// New returns a new random UUIDv7. Panics if UUID generation fails.
func New() UUID {
	uuidv7, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return uuidv7
}

// NewRandom returns a new UUIDv7 and any error encountered during generation.
func NewRandom() (UUID, error) {
	return uuid.NewV7()
}

// Parse parses a UUID string. Returns an error for invalid input.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a UUID string and panics on invalid input.
func MustParse(s string) UUID {
	return uuid.MustParse(s)
}
