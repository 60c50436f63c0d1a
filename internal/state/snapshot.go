package state

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"tradebook/internal/schema"
	"tradebook/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// Snapshot is the persisted output of a reconstruction run.
type Snapshot struct {
	Timestamp int64                  `json:"timestamp"`
	Trades    []schema.EnrichedTrade `json:"trades"`
	Positions []PositionEntry        `json:"positions"`
}

// NewSnapshot captures trades and the net positions they leave behind.
func NewSnapshot(trades []schema.EnrichedTrade) Snapshot {
	positions := NewPositionReducer()
	positions.ApplyTrades(trades)
	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		Trades:    trades,
		Positions: positions.Entries(),
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot dir").With("dir", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write snapshot").With("path", path)
	}
	return nil
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "read snapshot").With("path", path)
	}
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "unmarshal snapshot").With("path", path)
	}
	return snap, nil
}

// CompareSnapshots checks that two snapshots hold identical trades in the
// same order. Timestamps and positions are derived and not compared.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Trades) != len(actual.Trades) {
		return errors.Wrapf(exception.ErrSnapshotDiffers, "length mismatch: expected=%d actual=%d", len(expected.Trades), len(actual.Trades))
	}
	for i := range expected.Trades {
		want, got := expected.Trades[i], actual.Trades[i]
		if want.ID != got.ID {
			return errors.Wrapf(exception.ErrSnapshotDiffers, "order mismatch at %d: expected=%s actual=%s", i, want.ID, got.ID)
		}
		if !reflect.DeepEqual(want, got) {
			return errors.Wrapf(exception.ErrSnapshotDiffers, "trade %s differs", want.ID)
		}
	}
	return nil
}
