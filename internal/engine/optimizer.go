package engine

import "math"

const (
	// profitSentinel is returned by CalcProfit whenever the path is
	// infeasible at the given input (edge lookup failure or a running
	// amount that has decayed to noise). It sits below any realistic
	// loss so the golden-section search always steers away from it.
	profitSentinel = -1.0

	// minRunningAmount is the floor below which a simulated running
	// amount is treated as having vanished.
	minRunningAmount = 1e-15

	// bottleneckUtilization is the fraction of a hop's incoming reserve
	// the bottleneck probe allows a single trade to consume.
	bottleneckUtilization = 0.50

	// bottleneckProbe is the tiny input used to estimate per-hop scaling
	// before sizing the golden-section search interval.
	bottleneckProbe = 0.001

	// lowFraction scales the bottleneck limit down to the search
	// interval's lower bound.
	lowFraction = 1e-4

	// goldenIterations is the fixed number of narrowing steps; with
	// phi ~= 0.618 this shrinks the bracket by roughly 6.6e-5.
	goldenIterations = 20
)

// GetAmountOut computes the constant-product AMM output for a swap of aIn
// against reserves (rIn, rOut) under the standard 0.3% fee (997/1000).
func GetAmountOut(aIn, rIn, rOut float64) float64 {
	if aIn <= 0 {
		return 0
	}
	amountInWithFee := aIn * 997
	numerator := amountInWithFee * rOut
	denominator := rIn*1000 + amountInWithFee
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// findEdge returns the first edge u->v in g's adjacency, or false if none
// exists. Spec §4.5: "locate any edge u→v (first match wins)".
func findEdge(g *Graph, u, v int) (Edge, bool) {
	for _, e := range g.EdgesFrom(u) {
		if e.To == v {
			return e, true
		}
	}
	return Edge{}, false
}

// CalcProfit simulates forward along path with starting amount aIn and
// returns output-minus-input in the base token, or the sentinel -1.0 if
// any hop is infeasible.
func CalcProfit(g *Graph, aIn float64, path []int) float64 {
	if len(path) < 2 {
		return profitSentinel
	}

	running := aIn
	for i := 0; i < len(path)-1; i++ {
		e, ok := findEdge(g, path[i], path[i+1])
		if !ok {
			return profitSentinel
		}
		running = GetAmountOut(running, e.RIn, e.ROut)
		if running <= minRunningAmount {
			return profitSentinel
		}
	}

	return running - aIn
}

// GetBottleneck probes path with a tiny trade and estimates the largest
// input that would not consume more than bottleneckUtilization of any
// hop's incoming reserve, assuming the probe's scaling ratio holds
// linearly. This is a conservative bound used only to size the
// golden-section search interval — the search itself refines inside it.
func GetBottleneck(g *Graph, path []int) float64 {
	if len(path) < 2 {
		return 0
	}

	limit := math.Inf(1)
	initial := bottleneckProbe
	simulated := bottleneckProbe

	for i := 0; i < len(path)-1; i++ {
		e, ok := findEdge(g, path[i], path[i+1])
		if !ok {
			return 0
		}

		maxPool := e.RIn * bottleneckUtilization
		ratio := simulated / initial
		if ratio > 1e-9 {
			localLimit := maxPool / ratio
			if localLimit < limit {
				limit = localLimit
			}
		}

		simulated = GetAmountOut(simulated, e.RIn, e.ROut)
	}

	if math.IsInf(limit, 1) {
		return 0
	}
	return limit
}

// OptimizeCycle finds the input size that maximizes CalcProfit along path
// via golden-section search over the bottleneck-bounded interval. Returns
// (0, -1) if the path has no usable bottleneck.
func OptimizeCycle(g *Graph, path []int) (optInput, grossProfit float64) {
	limit := GetBottleneck(g, path)
	if limit <= 0 {
		return 0, profitSentinel
	}

	low := limit * lowFraction
	high := limit
	if low >= high {
		return low, CalcProfit(g, low, path)
	}

	const phi = 0.6180339887498949 // (sqrt(5) - 1) / 2

	c := high - (high-low)*phi
	d := low + (high-low)*phi
	pc := CalcProfit(g, c, path)
	pd := CalcProfit(g, d, path)

	for i := 0; i < goldenIterations; i++ {
		if pc > pd {
			high = d
			d = c
			pd = pc
			c = high - (high-low)*phi
			pc = CalcProfit(g, c, path)
		} else {
			low = c
			c = d
			pc = pd
			d = low + (high-low)*phi
			pd = CalcProfit(g, d, path)
		}
	}

	mid := (low + high) / 2
	return mid, CalcProfit(g, mid, path)
}
