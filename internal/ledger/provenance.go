package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
)

// Exporter turns a span of the ledger into a W3C PROV document. Every
// entry becomes an entity carrying its full payload, so the export can be
// restored into the original (kind, payload, correlation) triples; the
// activities, agents and edges are the interpreted view on top.
type Exporter struct {
	store domain.LedgerStore
	now   func() time.Time
}

func NewExporter(store domain.LedgerStore) *Exporter {
	return &Exporter{store: store, now: time.Now}
}

// Export renders the whole ledger from the given sequence onward.
func (x *Exporter) Export(ctx context.Context, from uint64) (*domain.ProvDocument, error) {
	entries, err := x.store.ReadFrom(ctx, from, 0)
	if err != nil {
		return nil, err
	}
	return x.build(entries)
}

// ExportCorrelation renders only the entries sharing one correlation id:
// the provenance of a single request.
func (x *Exporter) ExportCorrelation(ctx context.Context, correlationID uuid.UUID) (*domain.ProvDocument, error) {
	entries, err := x.store.Correlate(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	return x.build(entries)
}

func (x *Exporter) build(entries []domain.LedgerEntry) (*domain.ProvDocument, error) {
	doc := &domain.ProvDocument{ExportedAt: x.now().UTC()}
	agents := map[string]bool{}
	activities := map[string]bool{}

	for _, e := range entries {
		entID := entityID(e.Sequence)
		doc.Entities = append(doc.Entities, domain.ProvEntity{
			ID:       entID,
			Kind:     e.Kind,
			Sequence: e.Sequence,
			Attrs: map[string]any{
				"payload":        json.RawMessage(e.Payload),
				"correlation_id": e.CorrelationID.String(),
				"timestamp":      e.Timestamp.Format(time.RFC3339Nano),
				"parent_seqs":    e.ParentSeqs,
			},
		})

		actID := activityID(e)
		if !activities[actID] {
			activities[actID] = true
			doc.Activities = append(doc.Activities, domain.ProvActivity{
				ID:            actID,
				Kind:          e.Kind,
				CorrelationID: e.CorrelationID,
				StartedAt:     e.Timestamp,
			})
		}
		doc.Edges = append(doc.Edges, domain.ProvEdge{
			Relation: domain.ProvWasGeneratedBy, From: entID, To: actID,
		})

		for _, p := range e.ParentSeqs {
			rel := domain.ProvWasDerivedFrom
			if e.Kind == domain.EntryCorrection {
				rel = domain.ProvWasRevisionOf
			}
			doc.Edges = append(doc.Edges, domain.ProvEdge{
				Relation: rel, From: entID, To: entityID(p),
			})
		}

		if producer := producerOf(e); producer != "" {
			agID := "agent:" + producer
			if !agents[agID] {
				agents[agID] = true
				doc.Agents = append(doc.Agents, domain.ProvAgent{ID: agID, Name: producer})
			}
			doc.Edges = append(doc.Edges,
				domain.ProvEdge{Relation: domain.ProvWasAttributedTo, From: entID, To: agID},
				domain.ProvEdge{Relation: domain.ProvWasAssociatedWith, From: actID, To: agID},
			)
		}
	}
	return doc, nil
}

// Restore rebuilds ledger entries from an exported document. Sequence
// numbers are preserved as recorded at export time; restoring into a live
// ledger re-appends and therefore renumbers.
func Restore(doc *domain.ProvDocument) ([]domain.LedgerEntry, error) {
	entries := make([]domain.LedgerEntry, 0, len(doc.Entities))
	for _, ent := range doc.Entities {
		e := domain.LedgerEntry{Sequence: ent.Sequence, Kind: ent.Kind}
		if !domain.ValidEntryKind(string(ent.Kind)) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKind, ent.Kind)
		}
		payload, err := attrPayload(ent.Attrs["payload"])
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", ent.ID, err)
		}
		e.Payload = payload

		if raw, ok := ent.Attrs["correlation_id"].(string); ok {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("entity %s: bad correlation id: %w", ent.ID, err)
			}
			e.CorrelationID = id
		}
		if raw, ok := ent.Attrs["timestamp"].(string); ok {
			ts, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, fmt.Errorf("entity %s: bad timestamp: %w", ent.ID, err)
			}
			e.Timestamp = ts
		}
		e.ParentSeqs = attrParents(ent.Attrs["parent_seqs"])
		entries = append(entries, e)
	}
	return entries, nil
}

func entityID(seq uint64) string { return fmt.Sprintf("entry:%d", seq) }

func activityID(e domain.LedgerEntry) string {
	return fmt.Sprintf("activity:%s:%s", e.Kind, e.CorrelationID)
}

func producerOf(e domain.LedgerEntry) string {
	switch e.Kind {
	case domain.EntryClaim:
		var p domain.ClaimPayload
		if json.Unmarshal(e.Payload, &p) == nil {
			return p.Producer
		}
	case domain.EntryOutcome:
		var p domain.OutcomePayload
		if json.Unmarshal(e.Payload, &p) == nil {
			return p.Producer
		}
	}
	return ""
}

func attrPayload(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	case nil:
		return nil, fmt.Errorf("missing payload attribute")
	default:
		// A document decoded from JSON carries the payload as generic
		// values; re-encode to recover the raw bytes.
		return json.Marshal(p)
	}
}

func attrParents(v any) []uint64 {
	switch ps := v.(type) {
	case []uint64:
		if len(ps) == 0 {
			return nil
		}
		return ps
	case []any:
		var out []uint64
		for _, p := range ps {
			if f, ok := p.(float64); ok {
				out = append(out, uint64(f))
			}
		}
		return out
	}
	return nil
}
