// Package bible provides the canonical book list and verse structure that
// the reading ledger is measured against.
package bible

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

//go:embed structure.json
var structureJSON []byte

// Testament groups books in the dashboard.
type Testament int

const (
	OldTestament Testament = iota
	NewTestament
)

func (t Testament) String() string {
	if t == NewTestament {
		return "New Testament"
	}
	return "Old Testament"
}

// Book is one book of the canon. It implements passage.Layout.
type Book struct {
	Name      string
	Testament Testament
	verses    []int
}

// Chapters returns the number of chapters.
func (b *Book) Chapters() int {
	return len(b.verses)
}

// Verses returns the verse count of chapter, or 0 if it does not exist.
func (b *Book) Verses(chapter int) int {
	if chapter < 1 || chapter > len(b.verses) {
		return 0
	}
	return b.verses[chapter-1]
}

// Next returns the verse after l, crossing into the next chapter.
func (b *Book) Next(l passage.Locus) (passage.Locus, bool) {
	if l.Verse < b.Verses(l.Chapter) {
		return passage.At(l.Chapter, l.Verse+1), true
	}
	if l.Chapter < len(b.verses) {
		return passage.At(l.Chapter+1, 1), true
	}
	return passage.Locus{}, false
}

// Prev returns the verse before l, crossing into the previous chapter.
func (b *Book) Prev(l passage.Locus) (passage.Locus, bool) {
	if l.Verse > 1 {
		return passage.At(l.Chapter, l.Verse-1), true
	}
	if l.Chapter > 1 {
		return passage.At(l.Chapter-1, b.Verses(l.Chapter-1)), true
	}
	return passage.Locus{}, false
}

// TotalVerses returns the number of verses in the book.
func (b *Book) TotalVerses() int {
	n := 0
	for _, v := range b.verses {
		n += v
	}
	return n
}

// Canon is the ordered list of books. It implements passage.Canon.
type Canon struct {
	books  []*Book
	byName map[string]*Book
	names  []string
}

type structure struct {
	OT []bookEntry `json:"ot"`
	NT []bookEntry `json:"nt"`
}

type bookEntry struct {
	Name     string `json:"name"`
	Chapters []int  `json:"chapters"`
}

// Parse builds a canon from its JSON description.
func Parse(data []byte) (*Canon, error) {
	var s structure
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse bible structure: %w", err)
	}
	c := &Canon{byName: make(map[string]*Book)}
	for _, group := range []struct {
		t       Testament
		entries []bookEntry
	}{{OldTestament, s.OT}, {NewTestament, s.NT}} {
		for _, e := range group.entries {
			if e.Name == "" || len(e.Chapters) == 0 {
				return nil, fmt.Errorf("invalid book entry %q", e.Name)
			}
			for i, v := range e.Chapters {
				if v < 1 {
					return nil, fmt.Errorf("%s chapter %d has no verses", e.Name, i+1)
				}
			}
			key := foldName(e.Name)
			if _, dup := c.byName[key]; dup {
				return nil, fmt.Errorf("duplicate book %q", e.Name)
			}
			b := &Book{Name: e.Name, Testament: group.t, verses: e.Chapters}
			c.books = append(c.books, b)
			c.byName[key] = b
			c.names = append(c.names, e.Name)
		}
	}
	return c, nil
}

var defaultCanon = sync.OnceValue(func() *Canon {
	c, err := Parse(structureJSON)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the embedded 66-book Protestant canon.
func Default() *Canon {
	return defaultCanon()
}

// Books returns every book name in canonical order.
func (c *Canon) Books() []string {
	return append([]string(nil), c.names...)
}

// Layout returns the verse layout of the book with exactly this name.
func (c *Canon) Layout(name string) (passage.Layout, bool) {
	b, ok := c.Book(name)
	if !ok {
		return nil, false
	}
	return b, true
}

// Book returns the book with exactly this name.
func (c *Canon) Book(name string) (*Book, bool) {
	b, ok := c.byName[foldName(name)]
	if !ok || b.Name != name {
		return nil, false
	}
	return b, true
}

// Testament returns the books of t in canonical order.
func (c *Canon) Testament(t Testament) []*Book {
	var out []*Book
	for _, b := range c.books {
		if b.Testament == t {
			out = append(out, b)
		}
	}
	return out
}

// Lookup resolves user input to a book. Matching ignores case and extra
// whitespace, and a unique prefix is enough ("gen", "1 jo").
func (c *Canon) Lookup(name string) (*Book, error) {
	key := foldName(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty book name", passage.ErrUnknownBook)
	}
	if b, ok := c.byName[key]; ok {
		return b, nil
	}
	var found []*Book
	for _, b := range c.books {
		if strings.HasPrefix(foldName(b.Name), key) {
			found = append(found, b)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %q", passage.ErrUnknownBook, name)
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, b := range found {
			names[i] = b.Name
		}
		return nil, fmt.Errorf("%w: %q is ambiguous (%s)", passage.ErrUnknownBook, name, strings.Join(names, ", "))
	}
}

// Search returns book names matching query, best match first. An exact
// name always leads, and an empty query returns every book in canonical
// order.
func (c *Canon) Search(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.Books()
	}
	exact, hasExact := c.byName[foldName(query)]
	out := make([]string, 0, len(c.names))
	if hasExact {
		out = append(out, exact.Name)
	}
	for _, m := range fuzzy.Find(query, c.names) {
		if hasExact && m.Str == exact.Name {
			continue
		}
		out = append(out, m.Str)
	}
	return out
}

func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
