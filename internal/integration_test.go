// Package internal holds a top-level integration test exercising the full
// pipeline — ingestion decode through report writing — against the
// boundary scenarios named in spec §8.
package internal

import (
	"bytes"
	"strings"
	"testing"

	"watcher/internal/engine"
	"watcher/internal/ingestion"
	"watcher/internal/report"
)

const wethAddr = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"

func runSnapshot(t *testing.T, snapshotJSON string, cfg engine.Config) ([]engine.ArbResult, *engine.Graph, engine.Stats) {
	t.Helper()
	records, _, err := ingestion.DecodeSnapshot(strings.NewReader(snapshotJSON))
	if err != nil {
		t.Fatalf("DecodeSnapshot returned error: %v", err)
	}
	results, g, stats := engine.Run(records, cfg)
	return results, g, stats
}

// TestEmptySnapshotYieldsNoResults covers spec §8 boundary scenario 1.
func TestEmptySnapshotYieldsNoResults(t *testing.T) {
	results, g, stats := runSnapshot(t, `[]`, engine.DefaultConfig())
	if len(results) != 0 {
		t.Fatalf("expected 0 results for empty snapshot, got %d", len(results))
	}
	if g.NumNodes() != 0 {
		t.Errorf("expected 0 nodes, got %d", g.NumNodes())
	}
	if stats.CyclesFound != 0 {
		t.Errorf("expected 0 cycles, got %d", stats.CyclesFound)
	}
}

// TestSingleWETHUSDCPoolHasNoCycle covers spec §8 boundary scenario 2.
func TestSingleWETHUSDCPoolHasNoCycle(t *testing.T) {
	snapshot := poolsJSON([]poolFixture{
		{Addr: "p1", Token0: wethAddr, Token1: "0xusdc", Reserve0: "1000", Reserve1: "2000000", ReserveUSD: "4000000"},
	})
	results, g, _ := runSnapshot(t, snapshot, engine.DefaultConfig())

	if g.NumNodes() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NumNodes())
	}
	if len(results) != 0 {
		t.Fatalf("a 2-node graph can have no cycle; expected 0 results, got %d", len(results))
	}
}

// TestTriangularArbitrageFindsProfitableCycle covers spec §8 boundary
// scenario 3: A<->B (1000,1000), B<->C (1000,1000), C<->A (1000,1010).
func TestTriangularArbitrageFindsProfitableCycle(t *testing.T) {
	snapshot := poolsJSON([]poolFixture{
		{Addr: "pAB", Token0: "0xa", Token1: "0xb", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "1000000"},
		{Addr: "pBC", Token0: "0xb", Token1: "0xc", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "1000000"},
		{Addr: "pCA", Token0: "0xc", Token1: "0xa", Reserve0: "1000", Reserve1: "1010", ReserveUSD: "1000000"},
	})

	cfg := engine.DefaultConfig()
	cfg.WETHAddress = "0xa" // base token is A for this fixture; price it directly via WETH slot
	// The best gross profit on this fixture is ~7.4e-5 A, below the default
	// gas cost and net-profit floor, so both are zeroed to keep the cycle.
	cfg.GasCostETH = 0
	cfg.NetProfitFloor = 0
	results, _, _ := runSnapshot(t, snapshot, cfg)

	if len(results) == 0 {
		t.Fatal("expected at least one profitable cycle in the triangular fixture")
	}

	r := results[0]
	if r.GrossProfitBase <= 0 {
		t.Errorf("GrossProfitBase = %v, want > 0", r.GrossProfitBase)
	}
	if r.OptInput <= 0 || r.OptInput > 500 {
		t.Errorf("OptInput = %v, want in (0, 500]", r.OptInput)
	}
}

// TestZeroReservePoolIsFiltered covers spec §8 boundary scenario 4.
func TestZeroReservePoolIsFiltered(t *testing.T) {
	snapshot := poolsJSON([]poolFixture{
		{Addr: "p1", Token0: "0xa", Token1: "0xb", Reserve0: "0", Reserve1: "1000", ReserveUSD: "1000000"},
	})
	_, g, stats := runSnapshot(t, snapshot, engine.DefaultConfig())

	if g.NumNodes() != 0 {
		t.Fatalf("zero-reserve pool must not appear in the graph, got %d nodes", g.NumNodes())
	}
	if stats.Build.SkippedReserve != 1 {
		t.Errorf("SkippedReserve = %d, want 1", stats.Build.SkippedReserve)
	}
}

// TestSubThresholdTVLIsFiltered covers spec §8 boundary scenario 5.
func TestSubThresholdTVLIsFiltered(t *testing.T) {
	snapshot := poolsJSON([]poolFixture{
		{Addr: "p1", Token0: "0xa", Token1: "0xb", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "49999"},
	})
	_, g, stats := runSnapshot(t, snapshot, engine.DefaultConfig())

	if g.NumNodes() != 0 {
		t.Fatalf("sub-threshold TVL pool must not appear in the graph, got %d nodes", g.NumNodes())
	}
	if stats.Build.SkippedLowTVL != 1 {
		t.Errorf("SkippedLowTVL = %d, want 1", stats.Build.SkippedLowTVL)
	}
}

// TestHighGasCostFiltersAllResults covers spec §8 boundary scenario 6.
func TestHighGasCostFiltersAllResults(t *testing.T) {
	snapshot := poolsJSON([]poolFixture{
		{Addr: "pAB", Token0: "0xa", Token1: "0xb", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "1000000"},
		{Addr: "pBC", Token0: "0xb", Token1: "0xc", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "1000000"},
		{Addr: "pCA", Token0: "0xc", Token1: "0xa", Reserve0: "1000", Reserve1: "1010", ReserveUSD: "1000000"},
	})

	cfg := engine.DefaultConfig()
	cfg.WETHAddress = "0xa"
	cfg.GasCostETH = 1000
	results, _, _ := runSnapshot(t, snapshot, cfg)

	if len(results) != 0 {
		t.Fatalf("expected 0 results with a prohibitive gas cost, got %d", len(results))
	}
}

// TestFullPipelineWritesReports exercises ingestion -> engine -> report end
// to end, not just the engine in isolation.
func TestFullPipelineWritesReports(t *testing.T) {
	snapshot := poolsJSON([]poolFixture{
		{Addr: "pAB", Token0: "0xa", Token1: "0xb", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "1000000"},
		{Addr: "pBC", Token0: "0xb", Token1: "0xc", Reserve0: "1000", Reserve1: "1000", ReserveUSD: "1000000"},
		{Addr: "pCA", Token0: "0xc", Token1: "0xa", Reserve0: "1000", Reserve1: "1010", ReserveUSD: "1000000"},
	})

	cfg := engine.DefaultConfig()
	cfg.WETHAddress = "0xa"
	cfg.GasCostETH = 0
	cfg.NetProfitFloor = 0
	results, g, _ := runSnapshot(t, snapshot, cfg)
	if len(results) == 0 {
		t.Fatal("expected at least one result to report")
	}

	wethID, _ := g.TokenID(cfg.WETHAddress)

	var csvBuf, jsonBuf bytes.Buffer
	if err := report.WriteCSV(&csvBuf, results, g.TokenAddress, wethID); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if err := report.WriteJSON(&jsonBuf, results, g.TokenAddress, 10); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	if !strings.Contains(csvBuf.String(), "rank,base_token,base_symbol") {
		t.Error("csv output missing expected header")
	}
	if !strings.Contains(jsonBuf.String(), "\"inputAmount\"") {
		t.Error("json output missing expected field")
	}
}

type poolFixture struct {
	Addr, Token0, Token1, Reserve0, Reserve1, ReserveUSD string
}

func poolsJSON(pools []poolFixture) string {
	var b strings.Builder
	b.WriteString("[")
	for i, p := range pools {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"poolAddress":"` + p.Addr + `",` +
			`"token0":{"id":"` + p.Token0 + `"},` +
			`"token1":{"id":"` + p.Token1 + `"},` +
			`"reserve0":"` + p.Reserve0 + `",` +
			`"reserve1":"` + p.Reserve1 + `",` +
			`"reserveUSD":"` + p.ReserveUSD + `"}`)
	}
	b.WriteString("]")
	return b.String()
}
