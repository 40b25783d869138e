package engine

import "time"

// Config carries the tunable constants of spec §6.
type Config struct {
	MinTVLUSD      float64
	WETHAddress    string
	GasCostETH     float64
	NetProfitFloor float64
	Workers        int
}

// DefaultConfig returns the constants named explicitly in spec §6.
func DefaultConfig() Config {
	return Config{
		MinTVLUSD:      50_000,
		WETHAddress:    "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		GasCostETH:     0.0128,
		NetProfitFloor: 1e-4,
	}
}

// Durations breaks a run's wall-clock time down by pipeline stage, for
// structured logging and the metrics package (neither of which the core
// itself depends on — this is just a plain value the caller can report).
type Durations struct {
	GraphBuild time.Duration
	Oracle     time.Duration
	Enumerate  time.Duration
	Optimize   time.Duration
	Total      time.Duration
}

// Stats summarizes a single run for structured logging (spec §7).
type Stats struct {
	Build          BuildStats
	CyclesFound    int
	StepCapReached bool
	ResultsFound   int
	Durations      Durations
}

// Run executes the full pipeline: graph build, ETH pricing, cycle
// enumeration, per-cycle optimization, and aggregation. It never panics
// past this boundary (spec §7); a possibly-empty ranked result list is
// always returned alongside run statistics. The built Graph is also
// returned so callers can resolve token IDs back to addresses for
// reporting and archiving without re-running the build phase.
func Run(records []PoolRecord, cfg Config) ([]ArbResult, *Graph, Stats) {
	runStart := time.Now()

	t0 := time.Now()
	g, buildStats := BuildGraph(records, GraphConfig{MinTVLUSD: cfg.MinTVLUSD})
	graphBuildDur := time.Since(t0)

	wethID := -1
	if id, ok := g.TokenID(cfg.WETHAddress); ok {
		wethID = id
	}

	t0 = time.Now()
	oracle := BuildPriceOracle(g, wethID)
	oracleDur := time.Since(t0)

	t0 = time.Now()
	cycles, stepCapReached := FindCycles(g)
	enumerateDur := time.Since(t0)

	t0 = time.Now()
	results := Aggregate(g, oracle, cycles, AggregatorConfig{
		GasCostETH:     cfg.GasCostETH,
		NetProfitFloor: cfg.NetProfitFloor,
		Workers:        cfg.Workers,
	})
	optimizeDur := time.Since(t0)

	return results, g, Stats{
		Build:          buildStats,
		CyclesFound:    len(cycles),
		StepCapReached: stepCapReached,
		ResultsFound:   len(results),
		Durations: Durations{
			GraphBuild: graphBuildDur,
			Oracle:     oracleDur,
			Enumerate:  enumerateDur,
			Optimize:   optimizeDur,
			Total:      time.Since(runStart),
		},
	}
}
