package domain

import (
	"time"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/google/uuid"
)

// DefeaterKind follows the standard epistemology taxonomy: undermining
// attacks a claim's premises, rebutting attacks its conclusion,
// undercutting attacks the inference between them.
type DefeaterKind string

const (
	DefeaterUndermining  DefeaterKind = "undermining"
	DefeaterRebutting    DefeaterKind = "rebutting"
	DefeaterUndercutting DefeaterKind = "undercutting"
)

func ValidDefeaterKind(k string) bool {
	switch DefeaterKind(k) {
	case DefeaterUndermining, DefeaterRebutting, DefeaterUndercutting:
		return true
	}
	return false
}

// Defeater attacks exactly one target: a claim or another defeater
// (meta-defeat). Active is computed by resolution, never set directly.
type Defeater struct {
	ID              uuid.UUID        `json:"id"`
	Kind            DefeaterKind     `json:"kind"`
	AttacksClaim    *uuid.UUID       `json:"attacks_claim,omitempty"`
	AttacksDefeater *uuid.UUID       `json:"attacks_defeater,omitempty"`
	Strength        confidence.Value `json:"strength"`
	Active          bool             `json:"active"`
	CorrelationID   uuid.UUID        `json:"correlation_id"`
	CreatedAt       time.Time        `json:"created_at"`
}

// TargetsClaim reports whether the defeater attacks a claim (as opposed to
// another defeater).
func (d *Defeater) TargetsClaim() bool { return d.AttacksClaim != nil }
