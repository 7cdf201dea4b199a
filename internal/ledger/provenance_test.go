package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/credencelab/credence/internal/domain"
	"github.com/google/uuid"
)

func seedLedger(t *testing.T) (*MemoryLedger, uuid.UUID) {
	t.Helper()
	l := NewMemoryLedger()
	ctx := context.Background()
	corr := uuid.New()

	conf, err := confidence.NewMeasured(0.9, "eval-set", 200, 0.95, 0.85, 0.94)
	if err != nil {
		t.Fatal(err)
	}
	claimPayload, err := domain.MarshalPayload(domain.ClaimPayload{
		ClaimID:    uuid.New(),
		ContentRef: "sha256:abc",
		Producer:   "planner-v2",
		Confidence: conf,
	})
	if err != nil {
		t.Fatal(err)
	}
	claim := domain.LedgerEntry{Kind: domain.EntryClaim, Payload: claimPayload, CorrelationID: corr}
	if err := l.Append(ctx, &claim); err != nil {
		t.Fatal(err)
	}

	evidence := domain.LedgerEntry{
		Kind:          domain.EntryEvidence,
		Payload:       json.RawMessage(`{"source":"build-log"}`),
		CorrelationID: corr,
		ParentSeqs:    []uint64{claim.Sequence},
	}
	if err := l.Append(ctx, &evidence); err != nil {
		t.Fatal(err)
	}

	correction := domain.LedgerEntry{
		Kind:          domain.EntryCorrection,
		Payload:       json.RawMessage(`{"reason":"source retracted"}`),
		CorrelationID: corr,
		ParentSeqs:    []uint64{evidence.Sequence},
	}
	if err := l.Append(ctx, &correction); err != nil {
		t.Fatal(err)
	}
	return l, corr
}

func TestExportStructure(t *testing.T) {
	l, corr := seedLedger(t)
	doc, err := NewExporter(l).ExportCorrelation(context.Background(), corr)
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Entities) != 3 {
		t.Fatalf("entities = %d, want 3", len(doc.Entities))
	}
	if len(doc.Agents) != 1 || doc.Agents[0].Name != "planner-v2" {
		t.Errorf("agents = %+v", doc.Agents)
	}

	var revision, derived, attributed int
	for _, e := range doc.Edges {
		switch e.Relation {
		case domain.ProvWasRevisionOf:
			revision++
		case domain.ProvWasDerivedFrom:
			derived++
		case domain.ProvWasAttributedTo:
			attributed++
		}
	}
	if revision != 1 {
		t.Errorf("correction should yield one wasRevisionOf edge, got %d", revision)
	}
	if derived != 1 {
		t.Errorf("evidence parent should yield one wasDerivedFrom edge, got %d", derived)
	}
	if attributed != 1 {
		t.Errorf("claim should be attributed to its producer, got %d edges", attributed)
	}
}

func TestExportRestoreRoundTrip(t *testing.T) {
	l, _ := seedLedger(t)
	ctx := context.Background()

	doc, err := NewExporter(l).Export(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Round-trip through JSON the way a consumer would receive it.
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var decoded domain.ProvDocument
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(&decoded)
	if err != nil {
		t.Fatal(err)
	}
	originals, err := l.ReadFrom(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != len(originals) {
		t.Fatalf("restored %d entries, want %d", len(restored), len(originals))
	}
	for i := range originals {
		want, got := originals[i], restored[i]
		if got.Kind != want.Kind || got.Sequence != want.Sequence || got.CorrelationID != want.CorrelationID {
			t.Errorf("entry %d identity mismatch: got %+v want %+v", i, got, want)
		}
		if !jsonEqual(got.Payload, want.Payload) {
			t.Errorf("entry %d payload mismatch:\n got %s\nwant %s", i, got.Payload, want.Payload)
		}
		if len(got.ParentSeqs) != len(want.ParentSeqs) {
			t.Errorf("entry %d parents mismatch: got %v want %v", i, got.ParentSeqs, want.ParentSeqs)
		}
	}
}

func TestRestoreRejectsCorruptDocuments(t *testing.T) {
	if _, err := Restore(&domain.ProvDocument{
		Entities: []domain.ProvEntity{{ID: "entry:1", Kind: "gossip"}},
	}); err == nil {
		t.Error("unknown kind must be rejected")
	}
	if _, err := Restore(&domain.ProvDocument{
		Entities: []domain.ProvEntity{{ID: "entry:1", Kind: domain.EntryFact}},
	}); err == nil {
		t.Error("missing payload must be rejected")
	}
}

func jsonEqual(a, b json.RawMessage) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return bytes.Equal(a, b)
	}
	ca, _ := json.Marshal(av)
	cb, _ := json.Marshal(bv)
	return bytes.Equal(ca, cb)
}
