package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

const schema = `CREATE TABLE IF NOT EXISTS readings (
	book          TEXT    NOT NULL,
	start_chapter INTEGER NOT NULL,
	start_verse   INTEGER NOT NULL,
	end_chapter   INTEGER NOT NULL,
	end_verse     INTEGER NOT NULL,
	read_count    INTEGER NOT NULL,
	last_read     TEXT    NOT NULL,
	PRIMARY KEY (book, start_chapter, start_verse)
)`

// SQLiteStore keeps progress in a single SQLite table, one row per record.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	// raw holds the rows of blocked books as they were read.
	raw map[string][]row
}

type row struct {
	book                     string
	startChapter, startVerse int
	endChapter, endVerse     int
	readCount                int
	lastRead                 string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load restores every book found in the table.
func (q *SQLiteStore) Load(ctx context.Context, s *passage.Store) error {
	rows, err := q.db.QueryContext(ctx, `SELECT book, start_chapter, start_verse, end_chapter, end_verse, read_count, last_read
		FROM readings ORDER BY book, start_chapter, start_verse`)
	if err != nil {
		return fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	byBook := make(map[string][]row)
	var order []string
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.book, &r.startChapter, &r.startVerse, &r.endChapter, &r.endVerse, &r.readCount, &r.lastRead); err != nil {
			return fmt.Errorf("scan reading: %w", err)
		}
		if _, seen := byBook[r.book]; !seen {
			order = append(order, r.book)
		}
		byBook[r.book] = append(byBook[r.book], r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read readings: %w", err)
	}

	q.raw = make(map[string][]row)
	for _, book := range order {
		records, err := decodeRows(byBook[book])
		if err == nil {
			err = s.Restore(book, records)
		} else {
			err = fmt.Errorf("%s: %w", book, err)
			s.Block(book, err)
		}
		if err != nil {
			q.logger.Warn("quarantined book", "book", book, "error", err)
			q.raw[book] = byBook[book]
		}
	}
	return nil
}

func decodeRows(rows []row) ([]passage.Record, error) {
	records := make([]passage.Record, 0, len(rows))
	for _, r := range rows {
		rng, err := passage.NewRange(passage.At(r.startChapter, r.startVerse), passage.At(r.endChapter, r.endVerse))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", passage.ErrMalformedState, err)
		}
		date, err := parseDate(r.lastRead)
		if err != nil {
			return nil, err
		}
		records = append(records, passage.Record{Range: rng, ReadCount: r.readCount, LastRead: date})
	}
	return records, nil
}

// Save replaces the table contents in one transaction.
func (q *SQLiteStore) Save(ctx context.Context, s *passage.Store) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM readings`); err != nil {
		return fmt.Errorf("clear readings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO readings
		(book, start_chapter, start_verse, end_chapter, end_verse, read_count, last_read)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	insert := func(r row) error {
		if _, err := stmt.ExecContext(ctx, r.book, r.startChapter, r.startVerse, r.endChapter, r.endVerse, r.readCount, r.lastRead); err != nil {
			return fmt.Errorf("insert %s %d:%d: %w", r.book, r.startChapter, r.startVerse, err)
		}
		return nil
	}

	n := 0
	for book, ledger := range s.All() {
		for _, rec := range ledger.Records() {
			err := insert(row{
				book:         book,
				startChapter: rec.Range.Start.Chapter,
				startVerse:   rec.Range.Start.Verse,
				endChapter:   rec.Range.End.Chapter,
				endVerse:     rec.Range.End.Verse,
				readCount:    rec.ReadCount,
				lastRead:     formatDate(rec.LastRead),
			})
			if err != nil {
				return err
			}
			n++
		}
	}
	for book, rows := range q.raw {
		if s.Blocked(book) == nil {
			continue
		}
		for _, r := range rows {
			if err := insert(r); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	q.logger.Info("saved progress", "records", n)
	return nil
}

// Close closes the database handle.
func (q *SQLiteStore) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}
