package domain

import (
	"context"

	"github.com/google/uuid"
)

// LedgerStore is the append-only event log. Append assigns the sequence
// number; there is no update or delete. ReadFrom pages forward so reads
// can restart from the last sequence seen.
type LedgerStore interface {
	Append(ctx context.Context, e *LedgerEntry) error
	GetBySequence(ctx context.Context, seq uint64) (*LedgerEntry, error)
	ReadFrom(ctx context.Context, from uint64, limit int) ([]LedgerEntry, error)
	Correlate(ctx context.Context, correlationID uuid.UUID) ([]LedgerEntry, error)
	ReadByKind(ctx context.Context, kind EntryKind, from uint64, limit int) ([]LedgerEntry, error)
	Head(ctx context.Context) (uint64, error)
}

type ClaimStore interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	ListByProducer(ctx context.Context, producer string, limit int) ([]Claim, error)
	ListByStatus(ctx context.Context, status ClaimStatus, limit int) ([]Claim, error)
	UpdateResolution(ctx context.Context, c *Claim) error
	AttachEvidence(ctx context.Context, claimID, evidenceID uuid.UUID) error
}

type DefeaterStore interface {
	Create(ctx context.Context, d *Defeater) error
	GetByID(ctx context.Context, id uuid.UUID) (*Defeater, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]Defeater, error)
	ListAll(ctx context.Context) ([]Defeater, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type EvidenceStore interface {
	Create(ctx context.Context, e *Evidence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Evidence, error)
	ListExpired(ctx context.Context, limit int) ([]Evidence, error)
	ClaimsReferencing(ctx context.Context, evidenceID uuid.UUID) ([]uuid.UUID, error)
}
