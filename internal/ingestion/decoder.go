// Package ingestion decodes a pool-snapshot document into the records the
// arbitrage engine's graph builder consumes. This is the "external
// collaborator" the core detection engine deliberately keeps out of its own
// boundary (spec §1) — it exists so the repo is runnable end to end.
package ingestion

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"watcher/internal/engine"
)

// TokenRef is a token address/symbol pair as it appears in a snapshot
// document.
type TokenRef struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// PoolDoc is a single pool entry in a snapshot document (spec §6's "concrete
// input document shape").
type PoolDoc struct {
	PoolAddress string   `json:"poolAddress"`
	Token0      TokenRef `json:"token0"`
	Token1      TokenRef `json:"token1"`
	Reserve0    string   `json:"reserve0"`
	Reserve1    string   `json:"reserve1"`
	ReserveUSD  string   `json:"reserveUSD"`
	Fee         string   `json:"fee"`
}

// Stats reports the outcome of decoding a snapshot document.
type Stats struct {
	Total   int
	Decoded int
	Skipped int
}

// DecodeSnapshot parses a JSON array of pool documents from r into engine
// pool records. A record with a missing field, an unparseable decimal
// string, or an empty token address is skipped and counted, never
// failing the whole decode (spec §7 "per-pool malformed"); an unreadable or
// non-array document is a fatal input-missing error (spec §7).
func DecodeSnapshot(r io.Reader) ([]engine.PoolRecord, Stats, error) {
	var docs []PoolDoc
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, Stats{}, fmt.Errorf("decoding pool snapshot: %w", err)
	}

	stats := Stats{Total: len(docs)}
	records := make([]engine.PoolRecord, 0, len(docs))

	for _, d := range docs {
		rec, err := decodePool(d)
		if err != nil {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
		stats.Decoded++
	}

	return records, stats, nil
}

// decodePool parses a single pool document's decimal-string fields via
// shopspring/decimal (safe against the float-parsing surprises of
// strconv.ParseFloat on malformed input) and normalizes token addresses via
// go-ethereum/common, then converts to the float64 form the core's
// numerical model requires (spec §9).
func decodePool(d PoolDoc) (engine.PoolRecord, error) {
	token0, err := normalizeAddress(d.Token0.ID)
	if err != nil {
		return engine.PoolRecord{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := normalizeAddress(d.Token1.ID)
	if err != nil {
		return engine.PoolRecord{}, fmt.Errorf("token1: %w", err)
	}

	reserve0, err := parseDecimal(d.Reserve0)
	if err != nil {
		return engine.PoolRecord{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := parseDecimal(d.Reserve1)
	if err != nil {
		return engine.PoolRecord{}, fmt.Errorf("reserve1: %w", err)
	}
	reserveUSD, err := parseDecimal(d.ReserveUSD)
	if err != nil {
		return engine.PoolRecord{}, fmt.Errorf("reserveUSD: %w", err)
	}

	var fee float64
	if strings.TrimSpace(d.Fee) != "" {
		fee, err = parseDecimal(d.Fee)
		if err != nil {
			return engine.PoolRecord{}, fmt.Errorf("fee: %w", err)
		}
	}

	return engine.PoolRecord{
		PoolAddress: strings.ToLower(d.PoolAddress),
		Token0:      token0,
		Token1:      token1,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		ReserveUSD:  reserveUSD,
		Fee:         fee,
	}, nil
}

func parseDecimal(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty decimal field")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// normalizeAddress validates and lowercases a hex token address. Addresses
// that aren't valid hex (e.g. a non-EVM chain's native token notation) are
// still accepted as opaque strings per spec §3 ("opaque, case-insensitive
// equality assumed normalized by the caller") as long as they're non-empty;
// only well-formed 0x-addresses are canonicalized through go-ethereum.
func normalizeAddress(addr string) (string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", fmt.Errorf("empty token address")
	}
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex()), nil
	}
	return strings.ToLower(addr), nil
}
