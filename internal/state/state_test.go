package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jsimonrichard/bible-reading-progress/internal/bible"
	"github.com/jsimonrichard/bible-reading-progress/internal/config"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

var today = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func newStore() *passage.Store {
	return passage.NewStore(bible.Default(), passage.WithClock(func() time.Time { return today }))
}

func mustRange(t *testing.T, s string) passage.Range {
	t.Helper()
	r, err := passage.ParseRange(s)
	if err != nil {
		t.Fatalf("ParseRange(%q) failed: %v", s, err)
	}
	return r
}

func openBackends(dir string) map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"yaml": func(t *testing.T) Backend {
			return NewFileStore(filepath.Join(dir, "progress", "reading_progress.yaml"), nil)
		},
		"sqlite": func(t *testing.T) Backend {
			b, err := OpenSQLite(filepath.Join(dir, "reading_progress.db"), nil)
			if err != nil {
				t.Fatalf("OpenSQLite failed: %v", err)
			}
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestBackendPersistence(t *testing.T) {
	ctx := context.Background()
	for name, open := range openBackends(t.TempDir()) {
		t.Run(name, func(t *testing.T) {
			store1 := newStore()
			if _, err := store1.Record("Genesis", mustRange(t, "1:1-1:10")); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if _, err := store1.Record("Genesis", mustRange(t, "1:5-2:3")); err != nil {
				t.Fatalf("Record failed: %v", err)
			}
			if _, err := store1.ManualSet("Revelation", mustRange(t, "22:1-22:21"), 3, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)); err != nil {
				t.Fatalf("ManualSet failed: %v", err)
			}
			if err := open(t).Save(ctx, store1); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			// A fresh backend and store see the same history
			store2 := newStore()
			if err := open(t).Load(ctx, store2); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			for book, want := range store1.All() {
				got, err := store2.Ledger(book)
				if err != nil {
					t.Fatalf("Ledger(%s) failed: %v", book, err)
				}
				if !equalRecords(want.Records(), got.Records()) {
					t.Errorf("%s: expected %v, got %v", book, want.Records(), got.Records())
				}
			}
			if len(store2.BlockedBooks()) != 0 {
				t.Errorf("Expected no blocked books, got %v", store2.BlockedBooks())
			}
		})
	}
}

func equalRecords(a, b []passage.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Range != b[i].Range || a[i].ReadCount != b[i].ReadCount || !a[i].LastRead.Equal(b[i].LastRead) {
			return false
		}
	}
	return true
}

func TestFileStoreMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	store := newStore()
	if err := fs.Load(context.Background(), store); err != nil {
		t.Fatalf("Load of missing file should succeed: %v", err)
	}
	for book := range store.All() {
		t.Errorf("Expected empty store, found %s", book)
	}
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	fs := NewFileStore(path, nil)
	store := newStore()
	store.Record("Exodus", mustRange(t, "3:1-3:6"))
	store.Record("Genesis", mustRange(t, "1:1-1:31"))
	if err := fs.Save(context.Background(), store); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{"books:", "1:1-1:31", "read_count: 1", "2024-01-15"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in saved file:\n%s", want, text)
		}
	}
	if strings.Index(text, "Genesis") > strings.Index(text, "Exodus") {
		t.Errorf("Books should be saved in canonical order:\n%s", text)
	}
}

func TestFileStoreLegacyTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	content := `books:
  John:
    3:16-3:16:
      read_count: 4
      last_read: 2024-01-10T22:15:00Z
    3:17-3:18:
      read_count: 1
      last_read: 2024-01-11
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	store := newStore()
	if err := NewFileStore(path, nil).Load(context.Background(), store); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ledger, err := store.Ledger("John")
	if err != nil {
		t.Fatal(err)
	}
	records := ledger.Records()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %v", records)
	}
	if want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC); !records[0].LastRead.Equal(want) {
		t.Errorf("Expected %v, got %v", want, records[0].LastRead)
	}
}

func TestFileStoreQuarantine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	content := `books:
  Genesis:
    1:1-1:10:
      read_count: 1
      last_read: 2024-01-01
    1:5-1:12:
      read_count: 2
      last_read: 2024-01-02
  Exodus:
    1:1-1:22:
      read_count: 1
      last_read: 2024-01-03
  Tobit:
    1:1-1:3:
      read_count: 1
      last_read: 2024-01-04
  Ruth:
    1:1-1:5:
      read_count: many
      last_read: 2024-01-05
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path, nil)
	store := newStore()
	if err := fs.Load(context.Background(), store); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, book := range []string{"Genesis", "Tobit", "Ruth"} {
		if err := store.Blocked(book); !errors.Is(err, passage.ErrMalformedState) {
			t.Errorf("Expected %s to be blocked with ErrMalformedState, got %v", book, err)
		}
	}
	if _, err := store.Record("Genesis", mustRange(t, "2:1-2:3")); !errors.Is(err, passage.ErrMalformedState) {
		t.Errorf("Expected blocked book to refuse mutation, got %v", err)
	}
	if _, err := store.Record("Exodus", mustRange(t, "2:1-2:3")); err != nil {
		t.Fatalf("Other books should stay usable: %v", err)
	}
	if err := fs.Save(context.Background(), store); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var saved struct {
		Books map[string]map[string]map[string]string `yaml:"books"`
	}
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatalf("Saved file does not parse: %v\n%s", err, data)
	}
	if got := saved.Books["Genesis"]["1:5-1:12"]["read_count"]; got != "2" {
		t.Errorf("Quarantined Genesis entry lost, file:\n%s", data)
	}
	if got := saved.Books["Ruth"]["1:1-1:5"]["read_count"]; got != "many" {
		t.Errorf("Quarantined Ruth entry lost, file:\n%s", data)
	}
	if _, ok := saved.Books["Tobit"]["1:1-1:3"]; !ok {
		t.Errorf("Unknown book entry lost, file:\n%s", data)
	}
	if _, ok := saved.Books["Exodus"]["2:1-2:3"]; !ok {
		t.Errorf("New Exodus reading missing, file:\n%s", data)
	}
}

func TestFileStoreDuplicateBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	content := `books:
  Genesis:
    1:1-1:10:
      read_count: 1
      last_read: 2024-01-01
  Exodus:
    1:1-1:22:
      read_count: 1
      last_read: 2024-01-03
  Genesis:
    2:1-2:5:
      read_count: 3
      last_read: 2024-01-16
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path, nil)
	store := newStore()
	if err := fs.Load(context.Background(), store); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err := store.Blocked("Genesis")
	if !errors.Is(err, passage.ErrMalformedState) {
		t.Fatalf("Expected Genesis to be blocked with ErrMalformedState, got %v", err)
	}
	if !strings.Contains(err.Error(), "lines 2, 10") {
		t.Errorf("Expected both lines in %q", err)
	}
	if store.Blocked("Exodus") != nil {
		t.Errorf("Exodus should stay usable, got %v", store.Blocked("Exodus"))
	}
	if _, err := store.Record("Exodus", mustRange(t, "2:1-2:3")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := fs.Save(context.Background(), store); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	saved := string(data)
	if n := strings.Count(saved, "Genesis:"); n != 2 {
		t.Errorf("Expected both Genesis entries, found %d in:\n%s", n, saved)
	}
	for _, want := range []string{"1:1-1:10:", "2:1-2:5:", "2:1-2:3:"} {
		if !strings.Contains(saved, want) {
			t.Errorf("Missing %s in:\n%s", want, saved)
		}
	}

	again := newStore()
	if err := NewFileStore(path, nil).Load(context.Background(), again); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !errors.Is(again.Blocked("Genesis"), passage.ErrMalformedState) {
		t.Errorf("Genesis should still be blocked after reload, got %v", again.Blocked("Genesis"))
	}
}

func TestFileStoreRejectsUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	if err := os.WriteFile(path, []byte("- just\n- a list\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := NewFileStore(path, nil).Load(context.Background(), newStore())
	if !errors.Is(err, passage.ErrMalformedState) {
		t.Errorf("Expected ErrMalformedState, got %v", err)
	}
}

func TestSQLiteQuarantine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")
	db, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer db.Close()

	_, err = db.db.Exec(`INSERT INTO readings VALUES
		('Genesis', 1, 1, 1, 40, 1, '2024-01-01'),
		('Exodus', 1, 1, 1, 22, 2, '2024-01-02')`)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	store := newStore()
	if err := db.Load(ctx, store); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !errors.Is(store.Blocked("Genesis"), passage.ErrMalformedState) {
		t.Errorf("Expected Genesis blocked, got %v", store.Blocked("Genesis"))
	}
	if _, err := store.Record("Exodus", mustRange(t, "1:1-1:22")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := db.Save(ctx, store); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var count int
	if err := db.db.QueryRow(`SELECT read_count FROM readings WHERE book = 'Exodus'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Expected Exodus read_count 3, got %d", count)
	}
	var end int
	if err := db.db.QueryRow(`SELECT end_verse FROM readings WHERE book = 'Genesis'`).Scan(&end); err != nil {
		t.Fatalf("Quarantined Genesis row lost: %v", err)
	}
	if end != 40 {
		t.Errorf("Quarantined row changed: end_verse %d", end)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		storage config.Storage
		check   func(Backend) bool
	}{
		{config.StorageYAML, func(b Backend) bool { _, ok := b.(*FileStore); return ok }},
		{config.StorageSQLite, func(b Backend) bool { _, ok := b.(*SQLiteStore); return ok }},
	}
	for _, tt := range tests {
		t.Run(string(tt.storage), func(t *testing.T) {
			cfg := &config.Config{
				ProgressPath: filepath.Join(dir, string(tt.storage), "progress"),
				Storage:      tt.storage,
			}
			b, err := Open(cfg, nil)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer b.Close()
			if !tt.check(b) {
				t.Errorf("Open(%s) returned %T", tt.storage, b)
			}
		})
	}

	if _, err := Open(&config.Config{ProgressPath: filepath.Join(dir, "x"), Storage: "csv"}, nil); err == nil {
		t.Error("Expected error for unknown storage")
	}
}
