// Package state persists reading progress. A backend loads every book's
// records into a passage.Store and writes them back after each change.
//
// Books whose saved records are malformed are blocked in the store and
// their raw entries are kept verbatim, so saving never loses them.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jsimonrichard/bible-reading-progress/internal/config"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

// Backend loads and saves a progress store.
type Backend interface {
	// Load restores every persisted book into s. Malformed books are
	// blocked in s; the error is reserved for unreadable storage.
	Load(ctx context.Context, s *passage.Store) error
	// Save writes all of s. Either everything is written or nothing is.
	Save(ctx context.Context, s *passage.Store) error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ProgressPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create progress dir: %w", err)
	}
	switch cfg.Storage {
	case config.StorageSQLite:
		return OpenSQLite(cfg.ProgressPath, logger)
	case config.StorageYAML, "":
		return NewFileStore(cfg.ProgressPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// parseDate accepts the YYYY-MM-DD form this package writes, and full
// timestamps written by older versions.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return passage.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid last_read date %q", passage.ErrMalformedState, s)
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
