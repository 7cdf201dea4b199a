package domain

import (
	"time"

	"github.com/google/uuid"
)

// Provenance export follows the W3C PROV data model: entities are the
// things (claims, evidence), activities are the events that produced
// them, agents are the producers, and edges carry the standard PROV
// relation names.

type ProvEntity struct {
	ID   string    `json:"id"`
	Kind EntryKind `json:"kind"`
	// Sequence links the entity back to the ledger entry it was derived
	// from, so an export is auditable against the ledger.
	Sequence uint64         `json:"sequence"`
	Attrs    map[string]any `json:"attrs,omitempty"`
}

type ProvActivity struct {
	ID            string    `json:"id"`
	Kind          EntryKind `json:"kind"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	StartedAt     time.Time `json:"started_at"`
}

type ProvAgent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProvRelation string

const (
	ProvWasGeneratedBy    ProvRelation = "wasGeneratedBy"
	ProvUsed              ProvRelation = "used"
	ProvWasAttributedTo   ProvRelation = "wasAttributedTo"
	ProvWasInvalidatedBy  ProvRelation = "wasInvalidatedBy"
	ProvWasRevisionOf     ProvRelation = "wasRevisionOf"
	ProvWasInformedBy     ProvRelation = "wasInformedBy"
	ProvWasDerivedFrom    ProvRelation = "wasDerivedFrom"
	ProvActedOnBehalfOf   ProvRelation = "actedOnBehalfOf"
	ProvWasAssociatedWith ProvRelation = "wasAssociatedWith"
)

type ProvEdge struct {
	Relation ProvRelation `json:"relation"`
	From     string       `json:"from"`
	To       string       `json:"to"`
}

// ProvDocument is a self-contained provenance export for one correlation
// id or for the whole ledger.
type ProvDocument struct {
	Entities   []ProvEntity   `json:"entities"`
	Activities []ProvActivity `json:"activities"`
	Agents     []ProvAgent    `json:"agents"`
	Edges      []ProvEdge     `json:"edges"`
	ExportedAt time.Time      `json:"exported_at"`
}
