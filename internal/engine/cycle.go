package engine

const (
	// spfaStepCap bounds SPFA's worst-case work; SPFA can loop
	// indefinitely in the presence of negative cycles, which is the
	// entire point, so the cap is mandatory (spec §4.4).
	spfaStepCap = 20_000_000

	// relaxEps is the slack subtracted from dist[v] before a relaxation
	// is accepted, avoiding floating-point churn on near-zero-weight
	// cycles.
	relaxEps = 1e-9

	// cycleWalkDepth bounds the backward parent walk used to extract a
	// cycle once a sink has been relaxed more than once.
	cycleWalkDepth = 20

	// foldConst is the additive constant used by the fold-hash below
	// (0x9e3779b9, the golden-ratio constant also used by
	// boost::hash_combine).
	foldConst = 0x9e3779b9
)

// Cycle is a closed path of dense token IDs: [t0, t1, ..., tk, t0].
type Cycle struct {
	Path []int
}

// FindCycles runs a queue-based SPFA relaxation over g seeded with every
// node (spec §4.4 — deliberate, so cycles disconnected from a single root
// are still found), extracting and deduplicating candidate negative
// cycles as they're discovered. The second return value reports whether
// the step cap was reached (spec §7: a warning, not fatal — whatever
// cycles were found so far are still returned and processed).
func FindCycles(g *Graph) ([]Cycle, bool) {
	n := g.NumNodes()
	if n == 0 {
		return nil, false
	}

	dist := make([]float64, n)
	parent := make([]int, n)
	count := make([]int, n)
	inQueue := make([]bool, n)

	for i := range parent {
		parent[i] = -1
	}

	queue := make([]int, n)
	for i := 0; i < n; i++ {
		queue[i] = i
		inQueue[i] = true
	}

	seen := make(map[uint64]bool)
	var cycles []Cycle

	steps := 0
	for len(queue) > 0 && steps < spfaStepCap {
		steps++

		u := queue[0]
		queue = queue[1:]
		inQueue[u] = false

		for _, edge := range g.EdgesFrom(u) {
			v := edge.To
			newDist := dist[u] + edge.Weight
			if newDist < dist[v]-relaxEps {
				dist[v] = newDist
				parent[v] = u
				count[v]++

				if count[v] > 1 {
					if c, ok := extractCycle(parent, v); ok {
						fp := fingerprint(c)
						if !seen[fp] {
							seen[fp] = true
							cycles = append(cycles, Cycle{Path: c})
						}
					}
					count[v] = 0
				}

				if !inQueue[v] {
					queue = append(queue, v)
					inQueue[v] = true
				}
			}
		}
	}

	return cycles, steps >= spfaStepCap
}

// extractCycle walks parent backward from sink, looking for a revisit of
// sink within cycleWalkDepth steps. On success it returns the closed,
// forward-ordered path [sink, ..., sink].
func extractCycle(parent []int, sink int) ([]int, bool) {
	var path []int
	cur := sink

	for step := 0; step < cycleWalkDepth; step++ {
		path = append(path, cur)
		cur = parent[cur]
		if cur == sink && len(path) > 2 {
			path = append(path, sink)
			reverseInts(path)
			return path, true
		}
		if cur == -1 {
			break
		}
	}

	return nil, false
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// fingerprint folds the path's token IDs into a single order-sensitive
// hash, used to reject cycles already emitted in this run. Rotations and
// reversals of the same underlying cycle are not folded to the same
// value here by design (spec §4.4) — see CanonicalKey for the rotation/
// reversal-invariant key used by the aggregator.
func fingerprint(path []int) uint64 {
	var h uint64
	for _, id := range path {
		h ^= uint64(id) + foldConst + (h << 6) + (h >> 2)
	}
	return h
}

// CanonicalKey rotates the cycle to start at its minimum token ID and
// returns a string key suitable for collapsing rotation/reversal
// duplicates that the raw fingerprint above treats as distinct. This
// follows the recommendation in spec §9; it is applied downstream by the
// aggregator, not during extraction itself.
func (c Cycle) CanonicalKey() string {
	ids := c.Path
	if len(ids) > 0 && ids[0] == ids[len(ids)-1] {
		ids = ids[:len(ids)-1]
	}
	if len(ids) == 0 {
		return ""
	}

	minIdx := 0
	for i := 1; i < len(ids); i++ {
		if ids[i] < ids[minIdx] {
			minIdx = i
		}
	}

	rotated := make([]int, len(ids))
	for i := range ids {
		rotated[i] = ids[(minIdx+i)%len(ids)]
	}

	reversed := make([]int, len(rotated))
	reversed[0] = rotated[0]
	for i := 1; i < len(rotated); i++ {
		reversed[i] = rotated[len(rotated)-i]
	}

	fwd := intsKey(rotated)
	rev := intsKey(reversed)
	if fwd < rev {
		return fwd
	}
	return rev
}

func intsKey(ids []int) string {
	b := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		b = appendInt(b, id)
		b = append(b, '-')
	}
	return string(b)
}

func appendInt(b []byte, v int) []byte {
	if v == 0 {
		return append(b, '0')
	}
	if v < 0 {
		b = append(b, '~')
		v = -v
	}
	start := len(b)
	for v > 0 {
		b = append(b, byte('0'+v%10))
		v /= 10
	}
	for i, j := start, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}
