package domain

import (
	"time"

	"github.com/google/uuid"
)

// Evidence is an immutable reference to supporting material. Claims
// reference evidence by id, many-to-many; evidence is never owned by a
// claim and never edited after creation.
type Evidence struct {
	ID        uuid.UUID  `json:"id"`
	Source    string     `json:"source"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the evidence has passed its expiry, if any.
func (e *Evidence) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
