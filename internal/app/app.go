// Package app wires configuration, logging, the canon, the progress store
// and its backend together for the terminal and desktop front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jsimonrichard/bible-reading-progress/internal/bible"
	"github.com/jsimonrichard/bible-reading-progress/internal/config"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
	"github.com/jsimonrichard/bible-reading-progress/internal/state"
)

// ErrSave wraps backend failures. The in-memory store already holds the
// change when a mutation returns it.
var ErrSave = errors.New("failed to save progress")

// App is a loaded progress store bound to its backend.
type App struct {
	Config  *config.Config
	Canon   *bible.Canon
	Store   *passage.Store
	Logger  *slog.Logger
	backend state.Backend
	logFile *os.File
}

// Open loads configuration and progress.
func Open(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return OpenConfig(ctx, cfg)
}

// OpenConfig loads progress as described by cfg.
func OpenConfig(ctx context.Context, cfg *config.Config, opts ...passage.Option) (*App, error) {
	a := &App{Config: cfg, Canon: bible.Default()}
	if err := a.openLog(); err != nil {
		return nil, err
	}
	a.Store = passage.NewStore(a.Canon, opts...)

	backend, err := state.Open(cfg, a.Logger)
	if err != nil {
		a.closeLog()
		return nil, err
	}
	a.backend = backend
	if err := backend.Load(ctx, a.Store); err != nil {
		a.Close()
		return nil, err
	}
	for book, err := range a.Store.BlockedBooks() {
		a.Logger.Warn("book blocked", "book", book, "error", err)
	}
	a.Logger.Info("loaded progress", "path", cfg.ProgressPath, "storage", cfg.Storage)
	return a, nil
}

func (a *App) openLog() error {
	if a.Config.DebugLog == "" {
		a.Logger = slog.New(slog.DiscardHandler)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.Config.DebugLog), 0755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(a.Config.DebugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open debug log: %w", err)
	}
	a.logFile = f
	a.Logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return nil
}

func (a *App) closeLog() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

// Save writes the store through the backend.
func (a *App) Save(ctx context.Context) error {
	if err := a.backend.Save(ctx, a.Store); err != nil {
		a.Logger.Error("save failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

// Record marks each range of book as read today and saves. Nothing
// changes unless every range is valid.
func (a *App) Record(ctx context.Context, book string, ranges []passage.Range) error {
	for _, r := range ranges {
		if err := a.Store.Check(book, r); err != nil {
			return err
		}
	}
	for _, r := range ranges {
		if _, err := a.Store.Record(book, r); err != nil {
			return err
		}
		a.Logger.Info("recorded reading", "book", book, "range", r.String())
	}
	return a.Save(ctx)
}

// ManualSet overwrites the history of each range of book and saves.
// Nothing changes unless every range is valid.
func (a *App) ManualSet(ctx context.Context, book string, ranges []passage.Range, count int, date time.Time) error {
	for _, r := range ranges {
		if err := a.Store.CheckSet(book, r, count, date); err != nil {
			return err
		}
	}
	for _, r := range ranges {
		if _, err := a.Store.ManualSet(book, r, count, date); err != nil {
			return err
		}
		a.Logger.Info("set reading", "book", book, "range", r.String(), "count", count, "date", date.Format(time.DateOnly))
	}
	return a.Save(ctx)
}

// Close releases the backend and the debug log.
func (a *App) Close() error {
	var err error
	if a.backend != nil {
		err = a.backend.Close()
	}
	a.closeLog()
	return err
}
