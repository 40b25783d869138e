package report

import (
	"encoding/json"
	"fmt"
	"io"

	"watcher/internal/engine"
)

// TopKRecord is a single entry of the top-K JSON report (spec §6).
type TopKRecord struct {
	ID              int      `json:"id"`
	InputAmount     string   `json:"inputAmount"`
	ExpectedProfit  string   `json:"expectedProfit"`
	Path            []string `json:"path"`
}

// WriteJSON writes the top k results (1-based rank, default K=10 at the
// caller) to w as a JSON array of TopKRecord, decimal amounts fixed to 18
// fractional digits (spec §6).
func WriteJSON(w io.Writer, results []engine.ArbResult, resolve func(int) string, k int) error {
	if k <= 0 || k > len(results) {
		k = len(results)
	}

	records := make([]TopKRecord, 0, k)
	for i := 0; i < k; i++ {
		r := results[i]
		path := make([]string, len(r.Path))
		for j, id := range r.Path {
			path[j] = resolve(id)
		}

		records = append(records, TopKRecord{
			ID:             i + 1,
			InputAmount:    fmt.Sprintf("%.18f", r.OptInput),
			ExpectedProfit: fmt.Sprintf("%.18f", r.NetProfitETH),
			Path:           path,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("writing json report: %w", err)
	}
	return nil
}
