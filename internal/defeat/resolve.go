package defeat

import (
	"sort"

	"github.com/google/uuid"
)

// DefaultMaxIterations bounds the fixed-point loop. The squared
// characteristic map gains at least one node per productive iteration, so
// any graph of up to this many nodes converges inside the cap; the cap is
// a hard stop, never an infinite loop.
const DefaultMaxIterations = 1000

// Result is the outcome of one resolution run.
//
// Active holds the defeaters the grounded semantics forces to be active;
// Defeated holds those attacked by an active defeater; Undecided holds the
// rest, which necessarily sit on (or behind) attack cycles. Non-convergence
// is a disclosed terminal state, not an error.
type Result struct {
	Active     []uuid.UUID   `json:"active_defeaters"`
	Defeated   []uuid.UUID   `json:"defeated_defeaters"`
	Undecided  []uuid.UUID   `json:"undecided_defeaters"`
	Converged  bool          `json:"converged"`
	Iterations int           `json:"iterations"`
	Cycles     [][]uuid.UUID `json:"cycles,omitempty"`

	activeSet map[uuid.UUID]bool
}

// IsActive reports whether the given defeater ended up active.
func (r *Result) IsActive(id uuid.UUID) bool { return r.activeSet[id] }

// Option tunes a resolution run.
type Option func(*options)

type options struct {
	maxIterations int
}

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// Resolve computes the grounded extension of the attack graph by Kleene
// iteration. Starting from the empty (skeptical) set, each iteration
// applies the characteristic map
//
//	F(S) = { d : no attacker of d is in S }
//
// twice: F itself is antitone, so its square is monotone and the sequence
// F²ⁿ(∅) climbs to the least fixed point. Nodes in the fixed point are
// active; nodes attacked by an active node are defeated; everything else
// is undecided and its cycles are reported. A two-cycle (A attacks B, B
// attacks A) therefore leaves both inactive, by design.
func Resolve(g *Graph, opts ...Option) Result {
	o := options{maxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&o)
	}

	n := g.Size()
	active := make([]bool, n)
	next := make([]bool, n)
	scratch := make([]bool, n)

	converged := false
	iterations := 0
	for iterations < o.maxIterations {
		iterations++
		step(g, active, scratch)
		step(g, scratch, next)
		if equal(active, next) {
			converged = true
			break
		}
		copy(active, next)
	}

	res := Result{
		Converged:  converged,
		Iterations: iterations,
		activeSet:  make(map[uuid.UUID]bool, n),
	}

	defeated := make([]bool, n)
	for i := 0; i < n; i++ {
		if !active[i] {
			continue
		}
		for _, t := range g.targets[i] {
			defeated[t] = true
		}
	}

	var undecided []int
	for i := 0; i < n; i++ {
		id := g.ids[i]
		switch {
		case active[i]:
			res.Active = append(res.Active, id)
			res.activeSet[id] = true
		case defeated[i]:
			res.Defeated = append(res.Defeated, id)
		default:
			undecided = append(undecided, i)
			res.Undecided = append(res.Undecided, id)
		}
	}

	if len(undecided) > 0 {
		res.Cycles = g.cyclesAmong(undecided)
	}

	sortIDs(res.Active)
	sortIDs(res.Defeated)
	sortIDs(res.Undecided)
	return res
}

// step writes F(src) into dst: a node is in F(src) iff none of its
// attackers is in src.
func step(g *Graph, src, dst []bool) {
	for i := range dst {
		dst[i] = true
		for _, a := range g.attackers[i] {
			if src[a] {
				dst[i] = false
				break
			}
		}
	}
}

func equal(a, b []bool) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
}
