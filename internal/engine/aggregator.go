package engine

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ArbResult is a single ranked arbitrage opportunity (spec §3).
type ArbResult struct {
	BaseID          int
	Path            []int
	OptInput        float64
	GrossProfitBase float64
	NetProfitETH    float64
}

// AggregatorConfig carries the net-profit tunables from spec §6.
type AggregatorConfig struct {
	GasCostETH     float64
	NetProfitFloor float64
	// Workers bounds the parallel per-cycle optimization fan-out (spec
	// §5: "an implementation may exploit" this). 0 means
	// runtime.GOMAXPROCS(0).
	Workers int
}

// candidate pairs a cycle with its optimized outcome, computed
// concurrently and re-sorted afterward per spec §5's requirement that
// output ordering be re-established after any parallel phase.
type candidate struct {
	cycle    Cycle
	optInput float64
	gross    float64
}

// Aggregate optimizes every candidate cycle (optionally in parallel, spec
// §5), discards non-positive or sub-floor results, collapses
// rotation/reversal duplicates via Cycle.CanonicalKey (spec §9), and
// returns the remaining opportunities sorted by net ETH profit
// descending (spec §4.6/§8: strict descending order).
func Aggregate(g *Graph, oracle *PriceOracle, cycles []Cycle, cfg AggregatorConfig) []ArbResult {
	if len(cycles) == 0 {
		return nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(cycles) {
		workers = len(cycles)
	}

	candidates := make([]candidate, len(cycles))
	sem := make(chan struct{}, workers)
	var eg errgroup.Group

	for i, c := range cycles {
		i, c := i, c
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()
			optIn, gross := OptimizeCycle(g, c.Path)
			candidates[i] = candidate{cycle: c, optInput: optIn, gross: gross}
			return nil
		})
	}
	_ = eg.Wait() // OptimizeCycle never errors; nothing to propagate.

	best := make(map[string]ArbResult)
	for _, cand := range candidates {
		if cand.gross <= 0 {
			continue
		}

		baseID := cand.cycle.Path[0]
		ethValue := cand.gross * oracle.Price(baseID)
		netETH := ethValue - cfg.GasCostETH
		if netETH <= cfg.NetProfitFloor {
			continue
		}

		res := ArbResult{
			BaseID:          baseID,
			Path:            cand.cycle.Path,
			OptInput:        cand.optInput,
			GrossProfitBase: cand.gross,
			NetProfitETH:    netETH,
		}

		key := cand.cycle.CanonicalKey()
		if existing, ok := best[key]; !ok || res.NetProfitETH > existing.NetProfitETH {
			best[key] = res
		}
	}

	results := make([]ArbResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].NetProfitETH > results[j].NetProfitETH
	})

	return results
}
