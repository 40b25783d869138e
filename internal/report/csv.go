// Package report serializes a ranked arbitrage result set to the wire
// formats named in spec §6. Writing is explicitly a core-external concern
// (spec §1's "CSV/JSON result writers" are listed among the deliberately
// out-of-scope collaborators); this package gives them a concrete, runnable
// home rather than leaving the engine's output un-landable.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"watcher/internal/engine"
)

// WriteCSV writes every result in results to w using the header
// `rank,base_token,base_symbol,net_profit_eth,input_amount,path_array`
// (spec §6). resolve maps a dense token ID back to its address; wethID
// selects the "WETH" vs. "OTHER" base_symbol.
func WriteCSV(w io.Writer, results []engine.ArbResult, resolve func(int) string, wethID int) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"rank", "base_token", "base_symbol", "net_profit_eth", "input_amount", "path_array"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for i, r := range results {
		baseToken := resolve(r.BaseID)
		symbol := "OTHER"
		if r.BaseID == wethID {
			symbol = "WETH"
		}

		row := []string{
			fmt.Sprintf("%d", i+1),
			baseToken,
			symbol,
			fmt.Sprintf("%.18f", r.NetProfitETH),
			fmt.Sprintf("%.18f", r.OptInput),
			pathArray(r.Path, resolve),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// pathArray renders a cycle's token path as a double-quoted bracketed
// comma-separated list of quoted addresses, per spec §6's `path_array`.
func pathArray(path []int, resolve func(int) string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range path {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(resolve(id))
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return b.String()
}
