package defeat

import (
	"github.com/credencelab/credence/internal/confidence"
	"github.com/google/uuid"
)

// EffectiveConfidence returns the claim's confidence after discounting by
// every active defeater attacking it: the meet of the claim's own value
// with the complement of each active attacker's strength. Active defeaters
// only ever lower confidence; undecided ones (cycle members) leave the
// claim untouched, the skeptical default.
func EffectiveConfidence(g *Graph, res *Result, claim uuid.UUID, base confidence.Value) confidence.Value {
	out := base
	for _, d := range g.AttackersOf(claim) {
		if !res.IsActive(d) {
			continue
		}
		strength, ok := g.Strength(d)
		if !ok {
			continue
		}
		out = confidence.Meet(out, confidence.Complement(strength))
	}
	return out
}

// Defeated reports whether any active defeater attacks the claim.
func Defeated(g *Graph, res *Result, claim uuid.UUID) bool {
	for _, d := range g.AttackersOf(claim) {
		if res.IsActive(d) {
			return true
		}
	}
	return false
}
