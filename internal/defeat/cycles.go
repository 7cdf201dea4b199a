package defeat

import "github.com/google/uuid"

// cyclesAmong finds attack cycles within the given node subset (the
// undecided nodes after resolution). The traversal is an iterative DFS
// with an explicit stack: depth is bounded by the subset size, never by
// the goroutine stack.
func (g *Graph) cyclesAmong(subset []int) [][]uuid.UUID {
	inSubset := make(map[int]bool, len(subset))
	for _, i := range subset {
		inSubset[i] = true
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[int]int, len(subset))

	var cycles [][]uuid.UUID
	seen := make(map[string]bool)

	type frame struct {
		node int
		next int // next index into targets to try
	}

	for _, start := range subset {
		if color[start] != white {
			continue
		}
		stack := []frame{{node: start}}
		path := []int{start}
		color[start] = gray

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			advanced := false
			for f.next < len(g.targets[f.node]) {
				t := g.targets[f.node][f.next]
				f.next++
				if !inSubset[t] {
					continue
				}
				switch color[t] {
				case gray:
					// Back edge: the path from t to f.node closes a cycle.
					cycle := extractCycle(g, path, t)
					key := cycleKey(cycle)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, cycle)
					}
				case white:
					color[t] = gray
					stack = append(stack, frame{node: t})
					path = append(path, t)
					advanced = true
				}
				if advanced {
					break
				}
			}
			if !advanced {
				color[f.node] = black
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
			}
		}
	}
	return cycles
}

// extractCycle returns the ids of the path segment from the first
// occurrence of entry to the end of the current path.
func extractCycle(g *Graph, path []int, entry int) []uuid.UUID {
	start := 0
	for i, n := range path {
		if n == entry {
			start = i
			break
		}
	}
	cycle := make([]uuid.UUID, 0, len(path)-start)
	for _, n := range path[start:] {
		cycle = append(cycle, g.ids[n])
	}
	return cycle
}

// cycleKey canonicalizes a cycle by rotating its smallest id first, so the
// same cycle discovered from two entry points is reported once.
func cycleKey(cycle []uuid.UUID) string {
	if len(cycle) == 0 {
		return ""
	}
	minAt := 0
	for i := range cycle {
		if cycle[i].String() < cycle[minAt].String() {
			minAt = i
		}
	}
	key := ""
	for i := 0; i < len(cycle); i++ {
		key += cycle[(minAt+i)%len(cycle)].String() + "|"
	}
	return key
}
