// Command arbdetect runs one batch pass of the cyclic arbitrage detector
// over a pool-snapshot document: decode, build the graph, price it,
// enumerate candidate cycles, optimize and rank them, then write the CSV
// and top-K JSON reports.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"watcher/internal/archive"
	"watcher/internal/config"
	"watcher/internal/engine"
	"watcher/internal/ingestion"
	"watcher/internal/metrics"
	"watcher/internal/report"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	snapshotPath := flag.String("snapshot", "", "path to pool snapshot JSON file (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *snapshotPath != "" {
		cfg.IO.SnapshotPath = *snapshotPath
	}

	setupLogging(cfg.Logging)
	log.Info().Str("snapshot", cfg.IO.SnapshotPath).Msg("starting arbdetect run")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(cfg *config.Config) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if err := m.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.Shutdown(shutdownCtx)
		}()
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		var err error
		store, err = archive.NewStore(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runStart := time.Now()

	f, err := os.Open(cfg.IO.SnapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()

	t0 := time.Now()
	records, decodeStats, err := ingestion.DecodeSnapshot(f)
	if err != nil {
		return err
	}
	ingestDur := time.Since(t0)
	if m != nil {
		m.RecordIngest(decodeStats.Total, ingestDur)
	}
	log.Info().
		Int("total", decodeStats.Total).
		Int("decoded", decodeStats.Decoded).
		Int("skipped", decodeStats.Skipped).
		Dur("elapsed", ingestDur).
		Msg("pool snapshot decoded")

	engineCfg := engine.Config{
		MinTVLUSD:      cfg.Engine.MinTVLUSD,
		WETHAddress:    cfg.Engine.WETHAddress,
		GasCostETH:     cfg.Engine.GasCostETH,
		NetProfitFloor: cfg.Engine.NetProfitFloor,
		Workers:        cfg.Engine.Workers,
	}

	results, g, stats := engine.Run(records, engineCfg)

	log.Info().
		Int("pools_total", stats.Build.PoolsTotal).
		Int("pools_admitted", stats.Build.PoolsAdmitted).
		Int("skipped_low_tvl", stats.Build.SkippedLowTVL).
		Int("skipped_reserve", stats.Build.SkippedReserve).
		Dur("elapsed", stats.Durations.GraphBuild).
		Msg("graph built")

	if m != nil {
		m.RecordGraphBuild(stats.Build.PoolsAdmitted, g.NumNodes(), stats.Durations.GraphBuild)
		m.RecordOracle(stats.Durations.Oracle)
		m.RecordEnumerate(stats.CyclesFound, stats.StepCapReached, stats.Durations.Enumerate)
		m.RecordOptimize(stats.ResultsFound, stats.Durations.Optimize)
	}

	log.Info().Int("cycles_found", stats.CyclesFound).Msg("cycle enumeration complete")
	if stats.StepCapReached {
		log.Warn().Msg("SPFA step cap reached before queue drained; cycles found so far were processed")
	}

	log.Info().Int("results", len(results)).Msg("aggregation complete")

	resolver := g.TokenAddress
	wethID := -1
	if id, ok := g.TokenID(cfg.Engine.WETHAddress); ok {
		wethID = id
	}

	if err := writeReports(cfg, results, resolver, wethID); err != nil {
		return err
	}

	if store != nil {
		runRecord := archive.RunRecord{
			StartedAt:      runStart,
			PoolsTotal:     stats.Build.PoolsTotal,
			PoolsAdmitted:  stats.Build.PoolsAdmitted,
			CyclesFound:    stats.CyclesFound,
			ResultsFound:   stats.ResultsFound,
			StepCapReached: stats.StepCapReached,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := store.RecordRun(ctx, runRecord, results, resolver); err != nil {
			log.Warn().Err(err).Msg("failed to archive run results")
		}
	}

	if m != nil {
		m.RecordRun(time.Since(runStart))
	}

	log.Info().
		Int("pools_loaded", decodeStats.Decoded).
		Int("cycles_found", stats.CyclesFound).
		Int("opportunities", len(results)).
		Bool("step_cap_reached", stats.StepCapReached).
		Dur("total_elapsed", time.Since(runStart)).
		Msg("arbdetect run complete")

	return nil
}

func writeReports(cfg *config.Config, results []engine.ArbResult, resolve func(int) string, wethID int) error {
	csvFile, err := os.Create(cfg.IO.CSVPath)
	if err != nil {
		return err
	}
	defer csvFile.Close()
	if err := report.WriteCSV(csvFile, results, resolve, wethID); err != nil {
		return err
	}

	jsonFile, err := os.Create(cfg.IO.JSONPath)
	if err != nil {
		return err
	}
	defer jsonFile.Close()
	if err := report.WriteJSON(jsonFile, results, resolve, cfg.IO.TopK); err != nil {
		return err
	}

	log.Info().
		Str("csv", cfg.IO.CSVPath).
		Str("json", cfg.IO.JSONPath).
		Msg("reports written")
	return nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}
