package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tradebook/internal/bus"
	"tradebook/internal/core"
	"tradebook/internal/dedup"
	"tradebook/internal/ingest"
	"tradebook/internal/obs"
	"tradebook/internal/ops"
	"tradebook/internal/recorder"
	"tradebook/internal/state"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("ingest: %+v", err)
		os.Exit(1)
	}
}

// run reads {"venue","account","payload"} lines from -in (stdin by
// default), feeds them through the live path and writes one notification
// per accepted fill to stdout as a JSON line.
func run() error {
	configFlag := flag.String("config", "", "YAML config file (optional)")
	inFlag := flag.String("in", "-", "input JSONL file; - reads stdin")
	snapshotFlag := flag.String("snapshot", "", "write a full reconstruction here on exit")
	flag.Parse()

	_ = godotenv.Load()

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

	input, closeInput, err := openInput(*inFlag)
	if err != nil {
		return err
	}
	defer closeInput()

	var journal *recorder.Writer
	if cfg.Journal != nil {
		journal, err = recorder.NewWriter(*cfg.Journal)
		if err != nil {
			return err
		}
		if err := journal.Start(ctx); err != nil {
			return err
		}
		logs.Infof("journaling raw payloads to %s", cfg.Journal.Dir)
	}

	metrics := obs.NewMetrics()
	deduplicator := dedup.New(cfg.Dedup, nil)
	queue := bus.NewQueue(cfg.QueueCapacity)
	retention := cfg.Retention
	if *snapshotFlag != "" {
		// the final snapshot replays every accepted fill
		retention = -1
	}
	use, err := ingest.NewUsecase(ingest.UsecaseConfig{
		Normalizer: ingest.NewNormalizer(cfg.Registry),
		Dedup:      deduplicator,
		Queue:      queue,
		Journal:    journal,
		Metrics:    metrics,
		Ledger:     cfg.Ledger,
		Retention:  retention,
	})
	if err != nil {
		return err
	}

	go deduplicator.Run(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		emit(ctx, queue)
	}()

	err = recorder.Play(ctx, recorder.NewReader(input), func(e recorder.Entry) error {
		if _, err := use.Handle(e.Venue, e.Account, e.Payload); err != nil {
			logs.Errorf("skip %s payload, err: %+v", e.Venue, err)
		}
		return nil
	}, func(err error) {
		metrics.IncRejected(obs.ReasonMalformed)
		logs.Errorf("skip input line, err: %+v", err)
	})
	queue.Close()
	wg.Wait()

	if journal != nil {
		if cerr := journal.Close(); cerr != nil {
			logs.Errorf("close journal, err: %+v", cerr)
		}
	}
	if err != nil && ctx.Err() == nil {
		return err
	}

	snap := metrics.Snapshot()
	logs.Infof("ingest done, received: %d, accepted: %d, duplicates: %d, dropped notifications: %d, groups: %d, avg handle: %s",
		snap.Received, snap.Accepted, snap.Duplicates, snap.QueueDrops, use.Groups(), snap.HandleLatency.Avg)

	if *snapshotFlag != "" {
		trades := core.Reconstruct(context.Background(), use.History(), core.Config{Workers: cfg.Workers, Ledger: cfg.Ledger})
		if err := state.WriteSnapshot(*snapshotFlag, state.NewSnapshot(trades)); err != nil {
			return err
		}
		logs.Infof("wrote %d trades to %s", len(trades), *snapshotFlag)
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open input").With("path", path)
	}
	return file, func() { _ = file.Close() }, nil
}

func emit(ctx context.Context, queue *bus.Queue) {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	queue.Run(ctx, func(n bus.Notification) {
		data, err := sonic.ConfigStd.Marshal(n)
		if err != nil {
			logs.Errorf("marshal notification %d, err: %+v", n.Seq, err)
			return
		}
		_, _ = out.Write(append(data, '\n'))
	})
}
