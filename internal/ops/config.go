package ops

import (
	"os"
	"time"

	"tradebook/internal/dedup"
	"tradebook/internal/obs"
	"tradebook/internal/recorder"
	"tradebook/internal/schema"
	"tradebook/internal/state"
	"tradebook/internal/store"
	"tradebook/pkg/exception"

	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"
)

const defaultQueueCapacity = 1024

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Dedup     DedupConfig       `yaml:"dedup"`
	Ledger    LedgerConfig      `yaml:"ledger"`
	Dispatch  DispatchConfig    `yaml:"dispatch"`
	Registry  RegistryConfig    `yaml:"registry"`
	Queue     QueueConfig       `yaml:"queue"`
	Journal   JournalConfig     `yaml:"journal"`
	Postgres  store.Option      `yaml:"postgres"`
	Pyroscope obs.ProfileConfig `yaml:"pyroscope"`
}

// DedupConfig sets the deduplicator window.
type DedupConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	MaxKeys       int           `yaml:"maxKeys"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// LedgerConfig sets invariant handling and how much closed history the
// live path keeps per group.
type LedgerConfig struct {
	Strict    bool          `yaml:"strict"`
	Retention time.Duration `yaml:"retention"`
}

// DispatchConfig sets the replay worker pool.
type DispatchConfig struct {
	Workers int `yaml:"workers"`
}

// RegistryConfig lists per-venue symbol aliases.
type RegistryConfig struct {
	Aliases []AliasConfig `yaml:"aliases"`
}

// AliasConfig maps an index alias such as "@107" to a token name.
type AliasConfig struct {
	Venue string `yaml:"venue"`
	Alias string `yaml:"alias"`
	Name  string `yaml:"name"`
}

// QueueConfig sizes the notification queue.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// JournalConfig enables the raw payload journal when Dir is set.
type JournalConfig struct {
	Dir                string        `yaml:"dir"`
	SegmentMaxBytes    int64         `yaml:"segmentMaxBytes"`
	SegmentMaxDuration time.Duration `yaml:"segmentMaxDuration"`
	QueueSize          int           `yaml:"queueSize"`
	FlushInterval      time.Duration `yaml:"flushInterval"`
	SyncInterval       time.Duration `yaml:"syncInterval"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry      *schema.Registry
	Dedup         dedup.Config
	Ledger        state.Config
	Retention     time.Duration
	Workers       int
	QueueCapacity int
	// Journal is nil when journaling is disabled.
	Journal  *recorder.Config
	Postgres store.Option
	Profile  obs.ProfileConfig
}

// Load reads a YAML config file, expands ${VAR} references, applies
// defaults and validates. An empty path yields the defaults.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config file").With("path", path)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config yaml").With("path", path)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Loaded{}, err
	}
	return cfg.resolve()
}

func (cfg *FileConfig) applyDefaults() {
	if cfg.Dedup.TTL == 0 {
		cfg.Dedup.TTL = dedup.DefaultTTL
	}
	if cfg.Dedup.MaxKeys == 0 {
		cfg.Dedup.MaxKeys = dedup.DefaultMaxKeys
	}
	if cfg.Dedup.SweepInterval == 0 {
		cfg.Dedup.SweepInterval = dedup.DefaultSweepInterval
	}
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = defaultQueueCapacity
	}
}

// Validate checks the values a run cannot recover from.
func (cfg FileConfig) Validate() error {
	switch {
	case cfg.Dedup.TTL < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "dedup.ttl must be > 0")
	case cfg.Dedup.MaxKeys < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "dedup.maxKeys must be > 0")
	case cfg.Dedup.SweepInterval < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "dedup.sweepInterval must be > 0")
	case cfg.Dispatch.Workers < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "dispatch.workers must be >= 0")
	case cfg.Queue.Capacity < 0:
		return errors.Wrap(exception.ErrConfigInvalid, "queue.capacity must be > 0")
	}
	return nil
}

func (cfg FileConfig) resolve() (Loaded, error) {
	registry, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{
		Registry: registry,
		Dedup: dedup.Config{
			TTL:           cfg.Dedup.TTL,
			MaxKeys:       cfg.Dedup.MaxKeys,
			SweepInterval: cfg.Dedup.SweepInterval,
		},
		Ledger:        state.Config{Strict: cfg.Ledger.Strict},
		Retention:     cfg.Ledger.Retention,
		Workers:       cfg.Dispatch.Workers,
		QueueCapacity: cfg.Queue.Capacity,
		Postgres:      cfg.Postgres,
		Profile:       cfg.Pyroscope,
	}

	if cfg.Journal.Dir != "" {
		journal := recorder.DefaultConfig(cfg.Journal.Dir)
		if cfg.Journal.SegmentMaxBytes > 0 {
			journal.SegmentMaxBytes = cfg.Journal.SegmentMaxBytes
		}
		if cfg.Journal.SegmentMaxDuration > 0 {
			journal.SegmentMaxDuration = cfg.Journal.SegmentMaxDuration
		}
		if cfg.Journal.QueueSize > 0 {
			journal.QueueSize = cfg.Journal.QueueSize
		}
		if cfg.Journal.FlushInterval > 0 {
			journal.FlushInterval = cfg.Journal.FlushInterval
		}
		journal.SyncInterval = cfg.Journal.SyncInterval
		if err := journal.Validate(); err != nil {
			return Loaded{}, err
		}
		loaded.Journal = &journal
	}
	return loaded, nil
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	for _, alias := range cfg.Aliases {
		if err := reg.AddAlias(alias.Venue, alias.Alias, alias.Name); err != nil {
			return nil, errors.Wrap(exception.ErrConfigInvalid, err.Error())
		}
	}
	return reg, nil
}
