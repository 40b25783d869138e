package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCyclesDetectsTriangularArbitrage(t *testing.T) {
	records := []PoolRecord{
		{PoolAddress: "pAB", Token0: "A", Token1: "B", Reserve0: 1000, Reserve1: 1000, ReserveUSD: 1_000_000},
		{PoolAddress: "pBC", Token0: "B", Token1: "C", Reserve0: 1000, Reserve1: 1000, ReserveUSD: 1_000_000},
		{PoolAddress: "pCA", Token0: "C", Token1: "A", Reserve0: 1000, Reserve1: 1010, ReserveUSD: 1_000_000},
	}
	g, _ := BuildGraph(records, GraphConfig{MinTVLUSD: 50_000})

	cycles, stepCapReached := FindCycles(g)

	require.True(t, stepCapReached, "SPFA keeps relaxing a negative cycle, so only the step cap ends the run")
	require.NotEmpty(t, cycles, "expected at least one negative-weight cycle")

	for _, c := range cycles {
		assert.GreaterOrEqual(t, len(c.Path), 4, "a cycle must have at least 3 distinct nodes plus the closing repeat")
		assert.Equal(t, c.Path[0], c.Path[len(c.Path)-1], "a cycle must close on its starting node")
	}
}

func TestFindCyclesEmptyGraphReturnsNoCycles(t *testing.T) {
	g, _ := BuildGraph(nil, GraphConfig{MinTVLUSD: 50_000})
	cycles, stepCapReached := FindCycles(g)

	assert.Empty(t, cycles)
	assert.False(t, stepCapReached)
}

func TestFindCyclesAcyclicGraphReturnsNoCycles(t *testing.T) {
	records := []PoolRecord{
		{PoolAddress: "p1", Token0: "WETH", Token1: "USDC", Reserve0: 1000, Reserve1: 2_000_000, ReserveUSD: 4_000_000},
	}
	g, _ := BuildGraph(records, GraphConfig{MinTVLUSD: 50_000})

	cycles, _ := FindCycles(g)
	assert.Empty(t, cycles, "a two-node graph with mirrored edges only has no profitable cycle")
}

func TestCanonicalKeyCollapsesRotationsAndReversals(t *testing.T) {
	forward := Cycle{Path: []int{1, 2, 3, 1}}
	rotated := Cycle{Path: []int{2, 3, 1, 2}}
	reversed := Cycle{Path: []int{1, 3, 2, 1}}
	different := Cycle{Path: []int{1, 2, 4, 1}}

	assert.Equal(t, forward.CanonicalKey(), rotated.CanonicalKey())
	assert.Equal(t, forward.CanonicalKey(), reversed.CanonicalKey())
	assert.NotEqual(t, forward.CanonicalKey(), different.CanonicalKey())
}

func TestFingerprintIsOrderSensitive(t *testing.T) {
	fp1 := fingerprint([]int{1, 2, 3, 1})
	fp2 := fingerprint([]int{2, 3, 1, 2})
	assert.NotEqual(t, fp1, fp2, "the raw fingerprint is order-sensitive by design (spec §4.4)")
}
