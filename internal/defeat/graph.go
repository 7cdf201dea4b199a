// Package defeat computes which defeaters in an attack graph are active,
// using the grounded (skeptical) semantics from argumentation theory: only
// defeaters that must be active are active, and cycles resolve to neither
// side.
package defeat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/credencelab/credence/internal/confidence"
	"github.com/google/uuid"
)

var (
	// ErrReflexiveAttack means an edge attacks(x, x) was declared. It is
	// rejected when the edge is added, not deferred to resolution.
	ErrReflexiveAttack = errors.New("defeater cannot attack itself")
	// ErrUnknownDefeater means an edge referenced a defeater id that was
	// never added to the graph.
	ErrUnknownDefeater = errors.New("unknown defeater id")
	// ErrDuplicateDefeater means the same defeater id was added twice.
	ErrDuplicateDefeater = errors.New("duplicate defeater id")
)

// Graph is an arena of defeater nodes plus attacker->attacked edges.
// Nodes are addressed by dense indexes internally; ids only appear at the
// boundary. A Graph is built once and then handed to Resolve; callers must
// not mutate it while a resolution call is running.
type Graph struct {
	ids      []uuid.UUID
	index    map[uuid.UUID]int
	strength []confidence.Value

	attackers [][]int // attackers[i] = nodes attacking i
	targets   [][]int // targets[i]   = nodes i attacks

	claimAttacks map[uuid.UUID][]int // claim id -> defeater indexes attacking it
}

func NewGraph() *Graph {
	return &Graph{
		index:        make(map[uuid.UUID]int),
		claimAttacks: make(map[uuid.UUID][]int),
	}
}

// AddDefeater registers a defeater node with its strength.
func (g *Graph) AddDefeater(id uuid.UUID, strength confidence.Value) error {
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDefeater, id)
	}
	g.index[id] = len(g.ids)
	g.ids = append(g.ids, id)
	g.strength = append(g.strength, strength)
	g.attackers = append(g.attackers, nil)
	g.targets = append(g.targets, nil)
	return nil
}

// AddAttack declares that attacker, when active, defeats attacked (another
// defeater, enabling meta-defeat). Reflexive attacks are a construction
// error.
func (g *Graph) AddAttack(attacker, attacked uuid.UUID) error {
	if attacker == attacked {
		return fmt.Errorf("%w: %s", ErrReflexiveAttack, attacker)
	}
	ai, ok := g.index[attacker]
	if !ok {
		return fmt.Errorf("%w: attacker %s", ErrUnknownDefeater, attacker)
	}
	ti, ok := g.index[attacked]
	if !ok {
		return fmt.Errorf("%w: attacked %s", ErrUnknownDefeater, attacked)
	}
	g.targets[ai] = append(g.targets[ai], ti)
	g.attackers[ti] = append(g.attackers[ti], ai)
	return nil
}

// AddClaimAttack declares that the defeater attacks a claim. Claims are
// leaves of the attack relation: they never attack back, so they live
// outside the node arena.
func (g *Graph) AddClaimAttack(defeater, claim uuid.UUID) error {
	di, ok := g.index[defeater]
	if !ok {
		return fmt.Errorf("%w: defeater %s", ErrUnknownDefeater, defeater)
	}
	g.claimAttacks[claim] = append(g.claimAttacks[claim], di)
	return nil
}

// Size returns the number of defeater nodes.
func (g *Graph) Size() int { return len(g.ids) }

// Defeaters returns all node ids in insertion order.
func (g *Graph) Defeaters() []uuid.UUID {
	out := make([]uuid.UUID, len(g.ids))
	copy(out, g.ids)
	return out
}

// Strength returns the strength of the given defeater.
func (g *Graph) Strength(id uuid.UUID) (confidence.Value, bool) {
	i, ok := g.index[id]
	if !ok {
		return confidence.Value{}, false
	}
	return g.strength[i], true
}

// AttackersOf lists the defeaters attacking the given claim, sorted for
// deterministic output.
func (g *Graph) AttackersOf(claim uuid.UUID) []uuid.UUID {
	idxs := g.claimAttacks[claim]
	out := make([]uuid.UUID, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.ids[i])
	}
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out
}

// Claims returns the ids of all claims with at least one attacker.
func (g *Graph) Claims() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(g.claimAttacks))
	for id := range g.claimAttacks {
		out = append(out, id)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out
}
