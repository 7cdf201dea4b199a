package service

import (
	"context"
	"testing"
	"time"

	"github.com/credencelab/credence/internal/domain"
	"go.uber.org/zap"
)

func declareAgainstClaim(t *testing.T, env *testEnv, c *domain.Claim, rate float64) *domain.Defeater {
	t.Helper()
	d := &domain.Defeater{
		Kind:         domain.DefeaterRebutting,
		AttacksClaim: &c.ID,
		Strength:     measured(t, rate),
	}
	if err := env.svc.DeclareDefeater(context.Background(), d); err != nil {
		t.Fatalf("declare defeater: %v", err)
	}
	return d
}

func declareAgainstDefeater(t *testing.T, env *testEnv, target *domain.Defeater, rate float64) *domain.Defeater {
	t.Helper()
	d := &domain.Defeater{
		Kind:            domain.DefeaterUndercutting,
		AttacksDefeater: &target.ID,
		Strength:        measured(t, rate),
	}
	if err := env.svc.DeclareDefeater(context.Background(), d); err != nil {
		t.Fatalf("declare meta-defeater: %v", err)
	}
	return d
}

func TestResolveAllDefeatsAttackedClaim(t *testing.T) {
	env := setupClaimTest()
	ctx := context.Background()

	c := submitClaim(t, env, 0.9)
	d := declareAgainstClaim(t, env, c, 0.7)

	verdict, err := env.resolution.ResolveAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Result.Converged {
		t.Fatal("single-defeater graph must converge")
	}
	if len(verdict.ClaimsDefeated) != 1 || verdict.ClaimsDefeated[0] != c.ID {
		t.Errorf("claims defeated = %v", verdict.ClaimsDefeated)
	}

	got, err := env.svc.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ClaimDefeated {
		t.Errorf("status = %s, want defeated", got.Status)
	}
	effPoint, ok := got.Effective.Point()
	if !ok {
		t.Fatal("effective confidence lost its point")
	}
	basePoint, _ := got.Confidence.Point()
	if effPoint >= basePoint {
		t.Errorf("effective %f should be below stated %f", effPoint, basePoint)
	}

	stored, err := env.defeaters.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Active {
		t.Error("unattacked defeater must be marked active")
	}

	// One resolution entry landed in the ledger.
	entries, err := env.ledger.ReadByKind(ctx, domain.EntryResolution, 0, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("resolution entries = %d, %v; want 1", len(entries), err)
	}
	if entries[0].Sequence != verdict.LedgerSequence {
		t.Errorf("verdict sequence %d != ledger %d", verdict.LedgerSequence, entries[0].Sequence)
	}
}

func TestResolveAllMetaDefeatRestoresClaim(t *testing.T) {
	env := setupClaimTest()
	ctx := context.Background()

	c := submitClaim(t, env, 0.9)
	d := declareAgainstClaim(t, env, c, 0.7)

	if _, err := env.resolution.ResolveAll(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := env.svc.GetClaim(ctx, c.ID)
	if got.Status != domain.ClaimDefeated {
		t.Fatalf("setup: claim should start defeated, got %s", got.Status)
	}

	// Undercut the defeater and re-resolve: the claim comes back.
	declareAgainstDefeater(t, env, d, 0.8)
	verdict, err := env.resolution.ResolveAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(verdict.ClaimsRestored) != 1 || verdict.ClaimsRestored[0] != c.ID {
		t.Errorf("claims restored = %v", verdict.ClaimsRestored)
	}

	got, err = env.svc.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ClaimEntertained {
		t.Errorf("status = %s, want entertained after reinstatement", got.Status)
	}
	if !got.Effective.Equal(got.Confidence) {
		t.Errorf("restored claim should carry its stated confidence, got %s", got.Effective)
	}

	stored, _ := env.defeaters.GetByID(ctx, d.ID)
	if stored.Active {
		t.Error("undercut defeater must be inactive")
	}
}

func TestResolveAllMetaDefeatChain(t *testing.T) {
	// d3 -> d2 -> d1 -> claim: reinstatement alternates along the chain,
	// so d3 and d1 end active and the claim stays defeated.
	env := setupClaimTest()
	ctx := context.Background()

	c := submitClaim(t, env, 0.9)
	d1 := declareAgainstClaim(t, env, c, 0.6)
	d2 := declareAgainstDefeater(t, env, d1, 0.6)
	d3 := declareAgainstDefeater(t, env, d2, 0.6)

	verdict, err := env.resolution.ResolveAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Result.Converged {
		t.Fatal("chain must converge")
	}
	wantActive := map[*domain.Defeater]bool{d1: true, d2: false, d3: true}
	for d, want := range wantActive {
		stored, err := env.defeaters.GetByID(ctx, d.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Active != want {
			t.Errorf("defeater %s active = %v, want %v", d.ID, stored.Active, want)
		}
	}

	got, err := env.svc.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ClaimDefeated {
		t.Errorf("status = %s, want defeated (d1 was reinstated by d3)", got.Status)
	}
}

func TestResolveAllEmptyGraph(t *testing.T) {
	env := setupClaimTest()
	verdict, err := env.resolution.ResolveAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Result.Converged || verdict.Result.Iterations != 0 {
		t.Errorf("empty graph verdict = %+v", verdict.Result)
	}
}

func TestExpirySweeperDeclaresUnderminers(t *testing.T) {
	env := setupClaimTest()
	ctx := context.Background()

	c := submitClaim(t, env, 0.9)
	past := time.Now().Add(-time.Hour)
	ev := &domain.Evidence{Source: "cache-snapshot", ExpiresAt: &past}
	if err := env.svc.CreateEvidence(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.AttachEvidence(ctx, c.ID, ev.ID); err != nil {
		t.Fatal(err)
	}
	env.evidence.link(ev.ID, c.ID)

	sweeper := NewExpirySweeper(env.evidence, env.svc, env.resolution, zap.NewNop())
	sweeper.Sweep(ctx)

	defeaters, err := env.defeaters.ListByClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(defeaters) != 1 {
		t.Fatalf("defeaters = %d, want 1", len(defeaters))
	}
	if defeaters[0].Kind != domain.DefeaterUndermining {
		t.Errorf("kind = %s, want undermining", defeaters[0].Kind)
	}

	// The sweep triggered resolution: the claim is now defeated.
	got, err := env.svc.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ClaimDefeated {
		t.Errorf("status = %s, want defeated after sweep", got.Status)
	}

	// A second pass does not pile on duplicate defeaters.
	sweeper.Sweep(ctx)
	defeaters, _ = env.defeaters.ListByClaim(ctx, c.ID)
	if len(defeaters) != 1 {
		t.Errorf("second sweep added defeaters: %d", len(defeaters))
	}
}
