package domain

import (
	"encoding/json"
	"time"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryFact       EntryKind = "fact"
	EntryClaim      EntryKind = "claim"
	EntryEvidence   EntryKind = "evidence"
	EntryDefeat     EntryKind = "defeat"
	EntryResolution EntryKind = "resolution"
	EntryOutcome    EntryKind = "outcome"
	EntryCorrection EntryKind = "correction"
)

func ValidEntryKind(k string) bool {
	switch EntryKind(k) {
	case EntryFact, EntryClaim, EntryEvidence, EntryDefeat, EntryResolution, EntryOutcome, EntryCorrection:
		return true
	}
	return false
}

// LedgerEntry is one event in the append-only evidence ledger. Sequence is
// assigned by the store, monotonic and total; entries are never mutated or
// deleted. A correction is a new entry whose ParentSeqs names the entry it
// corrects.
type LedgerEntry struct {
	Sequence      uint64          `json:"sequence"`
	Kind          EntryKind       `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Timestamp     time.Time       `json:"timestamp"`
	ParentSeqs    []uint64        `json:"parent_seqs,omitempty"`
}

// ClaimPayload is the ledger payload for claim events.
type ClaimPayload struct {
	ClaimID     uuid.UUID        `json:"claim_id"`
	ContentRef  string           `json:"content_ref"`
	Producer    string           `json:"producer"`
	Confidence  confidence.Value `json:"confidence"`
	EvidenceIDs []uuid.UUID      `json:"evidence_ids,omitempty"`
}

// DefeatPayload is the ledger payload for defeater declarations.
type DefeatPayload struct {
	DefeaterID      uuid.UUID        `json:"defeater_id"`
	Kind            DefeaterKind     `json:"kind"`
	AttacksClaim    *uuid.UUID       `json:"attacks_claim,omitempty"`
	AttacksDefeater *uuid.UUID       `json:"attacks_defeater,omitempty"`
	Strength        confidence.Value `json:"strength"`
}

// ResolutionPayload is the ledger payload for a resolution run's verdict.
type ResolutionPayload struct {
	ActiveDefeaters []uuid.UUID   `json:"active_defeaters"`
	Converged       bool          `json:"converged"`
	Iterations      int           `json:"iterations"`
	Cycles          [][]uuid.UUID `json:"cycles,omitempty"`
}

// OutcomePayload is the ledger payload for a verified claim outcome. The
// predicted point is denormalized so calibration reports can be rebuilt
// from the ledger alone.
type OutcomePayload struct {
	ClaimID        uuid.UUID        `json:"claim_id"`
	Producer       string           `json:"producer"`
	Predicted      confidence.Value `json:"predicted"`
	PredictedPoint float64          `json:"predicted_point"`
	Actual         bool             `json:"actual"`
	VerifiedAt     time.Time        `json:"verified_at"`
}

// MarshalPayload encodes a typed payload for storage in a ledger entry.
func MarshalPayload(p any) (json.RawMessage, error) {
	return json.Marshal(p)
}
