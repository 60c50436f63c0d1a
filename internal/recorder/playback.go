package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tradebook/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// PlaybackConfig controls journal playback.
type PlaybackConfig struct {
	// Path is a journal directory or a single journal file.
	Path       string
	FilePrefix string
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c
}

// Validate checks if the config is usable.
func (c PlaybackConfig) Validate() error {
	if c.Path == "" {
		return errors.Wrap(exception.ErrJournalConfig, "playback Path is empty")
	}
	return nil
}

// PlaybackStats counts what a playback saw.
type PlaybackStats struct {
	Files     int
	Entries   int
	Malformed int
}

// Playback replays journal entries in file order.
type Playback struct {
	cfg PlaybackConfig
}

// NewPlayback validates the config and creates a playback engine.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg}, nil
}

// Run replays every entry through handler. Malformed lines are logged,
// counted and skipped; a handler error stops the playback.
func (p *Playback) Run(ctx context.Context, handler func(Entry) error) (PlaybackStats, error) {
	var stats PlaybackStats
	if handler == nil {
		return stats, errors.Wrap(exception.ErrJournalConfig, "playback handler is nil")
	}
	files, err := p.collectFiles()
	if err != nil {
		return stats, err
	}

	for _, path := range files {
		stats.Files++
		if err := p.playFile(ctx, path, handler, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (p *Playback) collectFiles() ([]string, error) {
	info, err := os.Stat(p.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "stat journal").With("path", p.cfg.Path)
	}
	if !info.IsDir() {
		return []string{p.cfg.Path}, nil
	}

	entries, err := os.ReadDir(p.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "read journal dir").With("path", p.cfg.Path)
	}
	prefix := p.cfg.FilePrefix + "-"
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Path, name))
	}
	sort.Strings(files)
	return files, nil
}

func (p *Playback) playFile(ctx context.Context, path string, handler func(Entry) error, stats *PlaybackStats) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open journal").With("path", path)
	}
	defer file.Close()

	return Play(ctx, NewReader(file), func(e Entry) error {
		stats.Entries++
		return handler(e)
	}, func(err error) {
		stats.Malformed++
		logs.Errorf("skip journal record in %s, err: %+v", path, err)
	})
}

// Play drains r through handler. onMalformed, when set, receives every
// malformed line error; such lines are skipped.
func Play(ctx context.Context, r *Reader, handler func(Entry) error, onMalformed func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		entry, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if malformed, ok := err.(*MalformedError); ok {
			if onMalformed != nil {
				onMalformed(malformed)
			}
			continue
		}
		if err != nil {
			return err
		}
		if err := handler(entry); err != nil {
			return err
		}
	}
}
