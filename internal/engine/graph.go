package engine

import "math"

const (
	// epsReserve is the minimum admissible reserve on either side of a pool.
	epsReserve = 1e-6

	// defaultFee is the fractional swap fee (0.3%) applied when a pool
	// record does not specify one.
	defaultFee = 0.003

	// maxWeight/minWeight clamp edge weights away from +/-Inf so a
	// pathologically lopsided (but filter-surviving) pool can never poison
	// SPFA's relaxation arithmetic with NaN.
	maxWeight = 230.0
	minWeight = -230.0
)

// Edge is a directed half-view of a pool from one token to another.
type Edge struct {
	To       int
	RIn      float64
	ROut     float64
	Weight   float64
	PoolAddr string
}

// PoolRecord is a pool as handed to the graph builder: already parsed to
// float64 by ingestion (see internal/ingestion). Token0/Token1 are token
// addresses, not dense IDs — interning happens inside BuildGraph.
type PoolRecord struct {
	PoolAddress string
	Token0      string
	Token1      string
	Reserve0    float64
	Reserve1    float64
	ReserveUSD  float64
	Fee         float64
}

// Graph is a directed multi-adjacency graph of token-exchange edges,
// indexed by dense token ID. It is built once per run and is immutable
// once BuildGraph returns — there is no concurrent mutation path, so no
// locking is needed (the core is single-threaded batch, spec §5).
type Graph struct {
	interner  *Interner
	adjacency [][]Edge
}

// NumNodes returns the number of distinct interned tokens.
func (g *Graph) NumNodes() int {
	return len(g.adjacency)
}

// EdgesFrom returns the outgoing edges from token ID u.
func (g *Graph) EdgesFrom(u int) []Edge {
	if u < 0 || u >= len(g.adjacency) {
		return nil
	}
	return g.adjacency[u]
}

// TokenID returns the dense ID for an address, if interned.
func (g *Graph) TokenID(addr string) (int, bool) {
	return g.interner.Lookup(addr)
}

// TokenAddress resolves a dense ID back to its address.
func (g *Graph) TokenAddress(id int) string {
	return g.interner.Resolve(id)
}

// BuildStats summarizes the filtering outcome of BuildGraph, surfaced to
// the operator via structured logging (spec §7: "logs skipped records as
// aggregate counts").
type BuildStats struct {
	PoolsTotal       int
	PoolsAdmitted    int
	SkippedLowTVL    int
	SkippedReserve   int
}

// GraphConfig carries the pool-admission tunables from spec §6.
type GraphConfig struct {
	MinTVLUSD float64
}

// BuildGraph constructs a Graph from pool records, applying the liquidity
// filters of spec §4.2. Malformed numeric fields are assumed already
// filtered out by ingestion (a record that failed to parse never reaches
// here); BuildGraph itself only applies the TVL and reserve-floor filters.
func BuildGraph(records []PoolRecord, cfg GraphConfig) (*Graph, BuildStats) {
	interner := NewInterner()
	g := &Graph{interner: interner}

	stats := BuildStats{PoolsTotal: len(records)}

	for _, rec := range records {
		if rec.ReserveUSD < cfg.MinTVLUSD {
			stats.SkippedLowTVL++
			continue
		}
		if rec.Reserve0 < epsReserve || rec.Reserve1 < epsReserve {
			stats.SkippedReserve++
			continue
		}

		fee := rec.Fee
		if fee <= 0 {
			fee = defaultFee
		}
		keepRate := 1 - fee

		u := interner.GetID(rec.Token0)
		v := interner.GetID(rec.Token1)
		g.growTo(max(u, v) + 1)

		g.adjacency[u] = append(g.adjacency[u], Edge{
			To:       v,
			RIn:      rec.Reserve0,
			ROut:     rec.Reserve1,
			Weight:   edgeWeight(rec.Reserve0, rec.Reserve1, keepRate),
			PoolAddr: rec.PoolAddress,
		})
		g.adjacency[v] = append(g.adjacency[v], Edge{
			To:       u,
			RIn:      rec.Reserve1,
			ROut:     rec.Reserve0,
			Weight:   edgeWeight(rec.Reserve1, rec.Reserve0, keepRate),
			PoolAddr: rec.PoolAddress,
		})

		stats.PoolsAdmitted++
	}

	return g, stats
}

// growTo ensures the adjacency table has at least n rows.
func (g *Graph) growTo(n int) {
	for len(g.adjacency) < n {
		g.adjacency = append(g.adjacency, nil)
	}
}

// edgeWeight computes -ln((rOut/rIn) * keepRate), clamped to keep SPFA's
// relaxation arithmetic finite.
func edgeWeight(rIn, rOut, keepRate float64) float64 {
	rate := (rOut / rIn) * keepRate
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return maxWeight
	}
	w := -math.Log(rate)
	if math.IsNaN(w) {
		return maxWeight
	}
	if w > maxWeight {
		return maxWeight
	}
	if w < minWeight {
		return minWeight
	}
	return w
}
