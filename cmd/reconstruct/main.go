package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tradebook/internal/core"
	"tradebook/internal/ingest"
	"tradebook/internal/obs"
	"tradebook/internal/ops"
	"tradebook/internal/schema"
	"tradebook/internal/state"
	"tradebook/internal/store"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("reconstruct: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "YAML config file (optional)")
	journalFlag := flag.String("journal", "", "journal file or directory; - reads stdin")
	outFlag := flag.String("out", "", "write the snapshot here instead of stdout")
	verifyFlag := flag.String("verify", "", "compare the result against this snapshot")
	persistFlag := flag.Bool("persist", false, "upsert the trades into postgres")
	noDedupFlag := flag.Bool("no-dedup", false, "replay redelivered fills as well")
	flag.Parse()

	_ = godotenv.Load()

	journal := strings.TrimSpace(*journalFlag)
	if journal == "" {
		return errors.New("missing journal; use -journal")
	}
	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}

	stopProfiler, err := obs.StartProfiler(cfg.Profile)
	if err != nil {
		return err
	}
	defer stopProfiler()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := obs.NewMetrics()
	resync := core.ResyncConfig{
		Dispatch: core.Config{Workers: cfg.Workers, Ledger: cfg.Ledger},
		Dedup:    cfg.Dedup,
		NoDedup:  *noDedupFlag,
		Metrics:  metrics,
	}
	normalizer := ingest.NewNormalizer(cfg.Registry)

	var (
		trades []schema.EnrichedTrade
		stats  core.ResyncStats
	)
	if journal == "-" {
		trades, stats, err = core.Resync(ctx, os.Stdin, normalizer, resync)
	} else {
		trades, stats, err = core.ResyncPath(ctx, journal, normalizer, resync)
	}
	if err != nil {
		return err
	}
	logs.Infof("resync done, files: %d, entries: %d, fills: %d, duplicates: %d, malformed: %d, undecoded: %d, trades: %d",
		stats.Files, stats.Entries, stats.Fills, stats.Duplicates, stats.Malformed, stats.Undecoded, len(trades))
	logMetrics(metrics.Snapshot())

	snapshot := state.NewSnapshot(trades)
	if err := output(*outFlag, snapshot); err != nil {
		return err
	}

	if *verifyFlag != "" {
		expected, err := state.ReadSnapshot(*verifyFlag)
		if err != nil {
			return err
		}
		if err := state.CompareSnapshots(expected, snapshot); err != nil {
			return err
		}
		logs.Infof("snapshot matches %s", *verifyFlag)
	}

	if *persistFlag {
		if !cfg.Postgres.Enabled() {
			return errors.New("persist needs postgres.database or postgres.connString in the config")
		}
		client, err := store.Open(cfg.Postgres)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.SaveTrades(ctx, trades); err != nil {
			return err
		}
		logs.Infof("persisted %d trades", len(trades))
	}
	return nil
}

func output(path string, snapshot state.Snapshot) error {
	if path != "" {
		return state.WriteSnapshot(path, snapshot)
	}
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

func logMetrics(snap obs.Snapshot) {
	for reason, count := range snap.Rejected {
		logs.Infof("rejected %s: %d", reason, count)
	}
	if snap.Implausible > 0 {
		logs.Infof("implausible timestamps: %d", snap.Implausible)
	}
	if snap.Degraded > 0 {
		logs.Infof("degraded trades: %d", snap.Degraded)
	}
	logs.Infof("replay took %s", snap.ReplayLatency.Max)
}
