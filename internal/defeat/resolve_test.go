package defeat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
)

func mustStrength(t *testing.T, v float64) confidence.Value {
	t.Helper()
	s, err := confidence.NewMeasured(v, "defeat-test", 100, 0.9, 0, 1)
	if err != nil {
		t.Fatalf("strength: %v", err)
	}
	return s
}

func buildGraph(t *testing.T, nodes int) (*Graph, []uuid.UUID) {
	t.Helper()
	g := NewGraph()
	ids := make([]uuid.UUID, nodes)
	for i := range ids {
		ids[i] = uuid.New()
		if err := g.AddDefeater(ids[i], mustStrength(t, 0.9)); err != nil {
			t.Fatalf("add defeater %d: %v", i, err)
		}
	}
	return g, ids
}

func sortedSet(ids ...uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sortIDs(out)
	return out
}

var resultCmp = cmpopts.EquateEmpty()

func TestResolveUnattackedIsActive(t *testing.T) {
	g, ids := buildGraph(t, 1)
	res := Resolve(g)

	if !res.Converged {
		t.Fatal("single node graph must converge")
	}
	if diff := cmp.Diff(sortedSet(ids[0]), res.Active, resultCmp); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveChain(t *testing.T) {
	// a attacks b, b attacks c: a active, b defeated, c reinstated.
	g, ids := buildGraph(t, 3)
	a, b, c := ids[0], ids[1], ids[2]
	if err := g.AddAttack(a, b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddAttack(b, c); err != nil {
		t.Fatal(err)
	}

	res := Resolve(g)
	if !res.Converged {
		t.Fatal("chain must converge")
	}
	if diff := cmp.Diff(sortedSet(a, c), res.Active, resultCmp); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sortedSet(b), res.Defeated, resultCmp); diff != "" {
		t.Errorf("defeated mismatch (-want +got):\n%s", diff)
	}
	if len(res.Undecided) != 0 || len(res.Cycles) != 0 {
		t.Errorf("chain should leave nothing undecided: %+v", res)
	}
}

func TestResolveTwoCycleSkepticism(t *testing.T) {
	// A attacks B and B attacks A with no other edges: grounded semantics
	// leaves both inactive. This is the designed outcome, not an accident.
	g, ids := buildGraph(t, 2)
	a, b := ids[0], ids[1]
	if err := g.AddAttack(a, b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddAttack(b, a); err != nil {
		t.Fatal(err)
	}

	res := Resolve(g)
	if !res.Converged {
		t.Fatal("two-cycle must converge")
	}
	if len(res.Active) != 0 {
		t.Errorf("two-cycle must activate nothing, got %v", res.Active)
	}
	if diff := cmp.Diff(sortedSet(a, b), res.Undecided, resultCmp); diff != "" {
		t.Errorf("undecided mismatch (-want +got):\n%s", diff)
	}
	if len(res.Cycles) != 1 || len(res.Cycles[0]) != 2 {
		t.Errorf("expected the two-cycle to be disclosed, got %v", res.Cycles)
	}
}

func TestResolveMetaDefeat(t *testing.T) {
	// d1 attacks the claim-level defeater d0; d1 is unattacked, so d0 is
	// defeated and the claim it attacked survives.
	g, ids := buildGraph(t, 2)
	d0, d1 := ids[0], ids[1]
	if err := g.AddAttack(d1, d0); err != nil {
		t.Fatal(err)
	}
	claim := uuid.New()
	if err := g.AddClaimAttack(d0, claim); err != nil {
		t.Fatal(err)
	}

	res := Resolve(g)
	if !res.IsActive(d1) {
		t.Error("meta-defeater should be active")
	}
	if res.IsActive(d0) {
		t.Error("attacked defeater should not be active")
	}
	if Defeated(g, &res, claim) {
		t.Error("claim attacked only by a defeated defeater must stand")
	}
}

func TestResolveOddCycleStaysUndecided(t *testing.T) {
	g, ids := buildGraph(t, 3)
	for i := range ids {
		if err := g.AddAttack(ids[i], ids[(i+1)%3]); err != nil {
			t.Fatal(err)
		}
	}

	res := Resolve(g)
	if !res.Converged {
		t.Fatal("odd cycle still reaches a fixed point of the squared map")
	}
	if len(res.Active) != 0 {
		t.Errorf("odd cycle must activate nothing, got %v", res.Active)
	}
	if len(res.Undecided) != 3 {
		t.Errorf("all three nodes should be undecided, got %v", res.Undecided)
	}
	if len(res.Cycles) == 0 {
		t.Error("cycle must be disclosed")
	}
}

func TestResolveCycleWithExternalAttacker(t *testing.T) {
	// x attacks a; a and b form a two-cycle. x is active, a defeated, and
	// b is reinstated because its only attacker is defeated.
	g, ids := buildGraph(t, 3)
	x, a, b := ids[0], ids[1], ids[2]
	for _, e := range [][2]uuid.UUID{{x, a}, {a, b}, {b, a}} {
		if err := g.AddAttack(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}

	res := Resolve(g)
	if diff := cmp.Diff(sortedSet(x, b), res.Active, resultCmp); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sortedSet(a), res.Defeated, resultCmp); diff != "" {
		t.Errorf("defeated mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTerminatesUnderCap(t *testing.T) {
	// A long chain needs many propagation rounds; a 1000-node graph must
	// either converge inside the default cap or disclose non-convergence.
	const n = 1000
	g, ids := buildGraph(t, n)
	for i := 0; i+1 < n; i++ {
		if err := g.AddAttack(ids[i], ids[i+1]); err != nil {
			t.Fatal(err)
		}
	}

	res := Resolve(g)
	if res.Iterations > DefaultMaxIterations {
		t.Fatalf("iterations %d exceeded cap", res.Iterations)
	}
	if !res.Converged {
		if len(res.Cycles) == 0 && len(res.Undecided) == 0 {
			t.Fatal("non-convergence must disclose cycles or undecided nodes")
		}
		return
	}
	// Alternating chain: even positions active, odd defeated.
	if len(res.Active) != n/2 {
		t.Errorf("active count = %d, want %d", len(res.Active), n/2)
	}
}

func TestResolveTinyIterationCapDiscloses(t *testing.T) {
	const n = 64
	g, ids := buildGraph(t, n)
	for i := 0; i+1 < n; i++ {
		if err := g.AddAttack(ids[i], ids[i+1]); err != nil {
			t.Fatal(err)
		}
	}

	res := Resolve(g, WithMaxIterations(2))
	if res.Converged {
		t.Fatal("2 iterations cannot settle a 64-node chain")
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}
}

func TestReflexiveAttackRejected(t *testing.T) {
	g, ids := buildGraph(t, 1)
	err := g.AddAttack(ids[0], ids[0])
	if !errors.Is(err, ErrReflexiveAttack) {
		t.Fatalf("expected ErrReflexiveAttack, got %v", err)
	}
}

func TestAttackRequiresKnownNodes(t *testing.T) {
	g, ids := buildGraph(t, 1)
	if err := g.AddAttack(ids[0], uuid.New()); !errors.Is(err, ErrUnknownDefeater) {
		t.Fatalf("expected ErrUnknownDefeater, got %v", err)
	}
	if err := g.AddDefeater(ids[0], mustStrength(t, 0.5)); !errors.Is(err, ErrDuplicateDefeater) {
		t.Fatalf("expected ErrDuplicateDefeater, got %v", err)
	}
}

func TestEffectiveConfidenceOnlyLowers(t *testing.T) {
	g := NewGraph()
	d := uuid.New()
	if err := g.AddDefeater(d, mustStrength(t, 0.7)); err != nil {
		t.Fatal(err)
	}
	claim := uuid.New()
	if err := g.AddClaimAttack(d, claim); err != nil {
		t.Fatal(err)
	}
	res := Resolve(g)

	base, _ := confidence.NewMeasured(0.9, "claims", 400, 0.95, 0.85, 0.93)
	eff := EffectiveConfidence(g, &res, claim, base)

	basePoint, _ := base.Point()
	effPoint, ok := eff.Point()
	if !ok {
		t.Fatal("effective confidence lost its point estimate")
	}
	if effPoint > basePoint {
		t.Errorf("active defeater raised confidence: %f > %f", effPoint, basePoint)
	}
	// complement(0.7) = 0.3, the meet picks the lower value
	if diff := effPoint - 0.3; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("effective point = %f, want 0.3", effPoint)
	}
	if !Defeated(g, &res, claim) {
		t.Error("claim with an active attacker must report defeated")
	}
}

func TestEffectiveConfidenceIgnoresUndecidedCycle(t *testing.T) {
	// A claim whose only defeaters sit in an unresolved cycle is not
	// defeated; the cycle is disclosed instead of being resolved either way.
	g, ids := buildGraph(t, 2)
	a, b := ids[0], ids[1]
	if err := g.AddAttack(a, b); err != nil {
		t.Fatal(err)
	}
	if err := g.AddAttack(b, a); err != nil {
		t.Fatal(err)
	}
	claim := uuid.New()
	if err := g.AddClaimAttack(a, claim); err != nil {
		t.Fatal(err)
	}

	res := Resolve(g)
	base := confidence.Deterministic(true, "verified build")
	eff := EffectiveConfidence(g, &res, claim, base)
	if !eff.Equal(base) {
		t.Errorf("undecided defeater changed confidence: %s", eff)
	}
	if Defeated(g, &res, claim) {
		t.Error("claim must not be defeated by an undecided cycle")
	}
	if len(res.Cycles) == 0 {
		t.Error("the cycle must still be disclosed")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	g, ids := buildGraph(t, 6)
	edges := [][2]int{{0, 1}, {1, 2}, {3, 4}, {4, 3}, {2, 5}}
	for _, e := range edges {
		if err := g.AddAttack(ids[e[0]], ids[e[1]]); err != nil {
			t.Fatal(err)
		}
	}

	first := Resolve(g)
	for i := 0; i < 5; i++ {
		again := Resolve(g)
		if diff := cmp.Diff(first, again, resultCmp, cmp.AllowUnexported(Result{})); diff != "" {
			t.Fatalf("run %d differed (-first +again):\n%s", i, diff)
		}
	}
}

func BenchmarkResolveWideGraph(b *testing.B) {
	g := NewGraph()
	var ids []uuid.UUID
	strength := confidence.Deterministic(true, "bench")
	for i := 0; i < 500; i++ {
		id := uuid.New()
		ids = append(ids, id)
		if err := g.AddDefeater(id, strength); err != nil {
			b.Fatal(err)
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		if err := g.AddAttack(ids[i], ids[i+1]); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res := Resolve(g)
		if !res.Converged {
			b.Fatal(fmt.Sprintf("unexpected non-convergence at %d", i))
		}
	}
}
