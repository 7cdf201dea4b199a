package domain

import (
	"time"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/google/uuid"
)

type ClaimStatus string

const (
	// ClaimEntertained is the initial status: the claim is on the table
	// but nothing has been decided about it.
	ClaimEntertained ClaimStatus = "entertained"
	ClaimAccepted    ClaimStatus = "accepted"
	ClaimRejected    ClaimStatus = "rejected"
	ClaimDefeated    ClaimStatus = "defeated"
)

func ValidClaimStatus(s string) bool {
	switch ClaimStatus(s) {
	case ClaimEntertained, ClaimAccepted, ClaimRejected, ClaimDefeated:
		return true
	}
	return false
}

// Claim is a machine-generated assertion under evaluation. Its status is
// mutated only by defeater resolution and outcome verification; its
// confidence history lives in the ledger, never rewritten in place.
type Claim struct {
	ID         uuid.UUID        `json:"id"`
	ContentRef string           `json:"content_ref"`
	Producer   string           `json:"producer"`
	Confidence confidence.Value `json:"confidence"`
	// Effective is the confidence after defeater discounting. It equals
	// Confidence until a resolution run has been applied.
	Effective     confidence.Value `json:"effective_confidence"`
	EvidenceIDs   []uuid.UUID      `json:"evidence_ids,omitempty"`
	Status        ClaimStatus      `json:"status"`
	CorrelationID uuid.UUID        `json:"correlation_id"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
