// Package ids generates short random identifiers for purchase records, idempotency tokens
// and simulated signatures.
package ids

import (
	"github.com/google/uuid"
	"github.com/jxskiss/base62"
)

// New returns a random v4 UUID in base62 form.
func New() string {
	id := uuid.New()
	return base62.EncodeToString(id[:])
}

// Cycle returns a short id for log correlation of one cycle.
func Cycle() string {
	id := New()
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
