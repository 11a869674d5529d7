package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

// FileStore keeps progress in a YAML file:
//
//	books:
//	  Genesis:
//	    1:1-1:10:
//	      read_count: 2
//	      last_read: 2024-01-15
type FileStore struct {
	path   string
	logger *slog.Logger
	// raw holds the entries of blocked books exactly as they were read,
	// in file order.
	raw []rawBook
}

type rawBook struct {
	key   *yaml.Node
	value *yaml.Node
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the progress file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the progress file into s. A missing file is an empty history.
func (f *FileStore) Load(_ context.Context, s *passage.Store) error {
	f.raw = nil
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read progress: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse progress %s: %w", f.path, err)
	}
	books, err := booksNode(&doc)
	if err != nil {
		return fmt.Errorf("%s: %w", f.path, err)
	}
	if books == nil {
		return nil
	}

	lines := make(map[string][]string)
	for i := 0; i+1 < len(books.Content); i += 2 {
		key := books.Content[i]
		lines[key.Value] = append(lines[key.Value], strconv.Itoa(key.Line))
	}

	for i := 0; i+1 < len(books.Content); i += 2 {
		key, value := books.Content[i], books.Content[i+1]
		book := key.Value
		var err error
		if at := lines[book]; len(at) > 1 {
			// Every copy is written back untouched.
			err = fmt.Errorf("%w: %s listed more than once (lines %s)", passage.ErrMalformedState, book, strings.Join(at, ", "))
			s.Block(book, err)
		} else if records, derr := decodeBook(value); derr != nil {
			err = fmt.Errorf("%s: %w", book, derr)
			s.Block(book, err)
		} else {
			err = s.Restore(book, records)
		}
		if err != nil {
			f.logger.Warn("quarantined book", "book", book, "error", err)
			f.raw = append(f.raw, rawBook{key: key, value: value})
		}
	}
	return nil
}

// booksNode returns the mapping under the top-level "books" key, or nil
// for an empty document.
func booksNode(doc *yaml.Node) (*yaml.Node, error) {
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", passage.ErrMalformedState)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "books" {
			continue
		}
		books := root.Content[i+1]
		if books.Kind == yaml.ScalarNode && books.Tag == "!!null" {
			return nil, nil
		}
		if books.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: books is not a mapping", passage.ErrMalformedState)
		}
		return books, nil
	}
	return nil, nil
}

type recordFields struct {
	ReadCount int    `yaml:"read_count"`
	LastRead  string `yaml:"last_read"`
}

func decodeBook(n *yaml.Node) ([]passage.Record, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of ranges (line %d)", passage.ErrMalformedState, n.Line)
	}
	records := make([]passage.Record, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		r, err := passage.ParseRange(key.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", passage.ErrMalformedState, key.Line, err)
		}
		var fields recordFields
		if err := value.Decode(&fields); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", passage.ErrMalformedState, value.Line, err)
		}
		date, err := parseDate(fields.LastRead)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", value.Line, err)
		}
		records = append(records, passage.Record{Range: r, ReadCount: fields.ReadCount, LastRead: date})
	}
	return records, nil
}

// Save writes s, plus the untouched entries of blocked books, replacing
// the file atomically.
func (f *FileStore) Save(_ context.Context, s *passage.Store) error {
	data, err := f.encode(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create progress dir: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}
	// atomic.WriteFile leaves new files at the temp file's 0600.
	if err := os.Chmod(f.path, 0644); err != nil {
		return fmt.Errorf("failed to set progress permissions: %w", err)
	}
	f.logger.Info("saved progress", "path", f.path, "bytes", len(data))
	return nil
}

func (f *FileStore) encode(s *passage.Store) ([]byte, error) {
	raw := make(map[string][]rawBook, len(f.raw))
	for _, rb := range f.raw {
		if s.Blocked(rb.key.Value) != nil {
			raw[rb.key.Value] = append(raw[rb.key.Value], rb)
		}
	}
	ledgers := make(map[string]*passage.Ledger)
	for book, ledger := range s.All() {
		ledgers[book] = ledger
	}

	books := &yaml.Node{Kind: yaml.MappingNode}
	for _, book := range s.Books() {
		if rbs, ok := raw[book]; ok {
			for _, rb := range rbs {
				books.Content = append(books.Content, rb.key, rb.value)
			}
			delete(raw, book)
			continue
		}
		if ledger, ok := ledgers[book]; ok {
			books.Content = append(books.Content, scalar(book), encodeLedger(ledger))
		}
	}
	// Blocked books the canon does not know keep their file order.
	for _, rb := range f.raw {
		if _, ok := raw[rb.key.Value]; ok {
			books.Content = append(books.Content, rb.key, rb.value)
		}
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar("books"), books}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode progress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode progress: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeLedger(l *passage.Ledger) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, rec := range l.Records() {
		fields := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
			scalar("read_count"), {Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(rec.ReadCount)},
			scalar("last_read"), scalar(formatDate(rec.LastRead)),
		}}
		n.Content = append(n.Content, scalar(rec.Range.String()), fields)
	}
	return n
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// Close is a no-op; the file is only open while loading or saving.
func (f *FileStore) Close() error {
	return nil
}
