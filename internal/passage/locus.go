// Package passage tracks which verse ranges of a book have been read, how
// many times, and when.
package passage

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Locus is a (chapter, verse) point within a book.
type Locus struct {
	Chapter int
	Verse   int
}

// At returns the locus for chapter:verse.
func At(chapter, verse int) Locus {
	return Locus{Chapter: chapter, Verse: verse}
}

// Compare orders loci by chapter, then verse. It returns -1, 0 or +1.
func (l Locus) Compare(o Locus) int {
	if c := cmp.Compare(l.Chapter, o.Chapter); c != 0 {
		return c
	}
	return cmp.Compare(l.Verse, o.Verse)
}

// Before reports whether l sorts strictly before o.
func (l Locus) Before(o Locus) bool {
	return l.Compare(o) < 0
}

func (l Locus) String() string {
	return strconv.Itoa(l.Chapter) + ":" + strconv.Itoa(l.Verse)
}

// Layout is the verse structure of a single book. It is supplied by the
// document-structure provider; the ledger never guesses chapter lengths.
type Layout interface {
	// Chapters returns the number of chapters in the book.
	Chapters() int
	// Verses returns the number of verses in chapter, or 0 if the chapter
	// does not exist.
	Verses(chapter int) int
	// Next returns the locus immediately after l. The second result is
	// false at the end of the book.
	Next(l Locus) (Locus, bool)
	// Prev returns the locus immediately before l. The second result is
	// false at the start of the book.
	Prev(l Locus) (Locus, bool)
}

// Range is an inclusive interval [Start, End] of loci.
type Range struct {
	Start Locus
	End   Locus
}

// NewRange builds a range, rejecting start > end and non-positive loci.
func NewRange(start, end Locus) (Range, error) {
	if start.Chapter < 1 || start.Verse < 1 || end.Chapter < 1 || end.Verse < 1 {
		return Range{}, fmt.Errorf("%w: %s-%s has a chapter or verse below 1", ErrInvalidRange, start, end)
	}
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// Contains reports whether l lies inside r.
func (r Range) Contains(l Locus) bool {
	return r.Start.Compare(l) <= 0 && l.Compare(r.End) <= 0
}

// Covers reports whether o lies entirely inside r.
func (r Range) Covers(o Range) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

// Overlaps reports whether the closed intervals r and o intersect.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Compare(o.End) <= 0 && o.Start.Compare(r.End) <= 0
}

// Intersect returns the common sub-range of r and o. The second result is
// false when they are disjoint.
func (r Range) Intersect(o Range) (Range, bool) {
	if !r.Overlaps(o) {
		return Range{}, false
	}
	start := r.Start
	if start.Before(o.Start) {
		start = o.Start
	}
	end := r.End
	if o.End.Before(end) {
		end = o.End
	}
	return Range{Start: start, End: end}, true
}

// Subtract returns the parts of r not covered by o: nothing, one remainder,
// or a left and a right remainder when o sits strictly inside r.
func (r Range) Subtract(o Range, layout Layout) []Range {
	if !r.Overlaps(o) {
		return []Range{r}
	}
	var out []Range
	if r.Start.Before(o.Start) {
		if end, ok := layout.Prev(o.Start); ok {
			out = append(out, Range{Start: r.Start, End: end})
		}
	}
	if o.End.Before(r.End) {
		if start, ok := layout.Next(o.End); ok {
			out = append(out, Range{Start: start, End: r.End})
		}
	}
	return out
}

// String renders the canonical "c:v-c:v" form used as the persisted key.
func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// Label renders r for display: "3:16", "3:1-18" or "3:1-4:2".
func (r Range) Label() string {
	switch {
	case r.Start == r.End:
		return r.Start.String()
	case r.Start.Chapter == r.End.Chapter:
		return r.Start.String() + "-" + strconv.Itoa(r.End.Verse)
	default:
		return r.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRange parses the canonical "c:v-c:v" form. A single "c:v" is
// accepted as a one-verse range.
func ParseRange(s string) (Range, error) {
	startText, endText, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err := parseLocus(startText)
	if err != nil {
		return Range{}, err
	}
	end := start
	if found {
		if end, err = parseLocus(endText); err != nil {
			return Range{}, err
		}
	}
	return NewRange(start, end)
}

func parseLocus(s string) (Locus, error) {
	chapterText, verseText, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Locus{}, fmt.Errorf("%w: %q is not chapter:verse", ErrInvalidRange, s)
	}
	chapter, err := strconv.Atoi(strings.TrimSpace(chapterText))
	if err != nil {
		return Locus{}, fmt.Errorf("%w: bad chapter in %q", ErrInvalidRange, s)
	}
	verse, err := strconv.Atoi(strings.TrimSpace(verseText))
	if err != nil {
		return Locus{}, fmt.Errorf("%w: bad verse in %q", ErrInvalidRange, s)
	}
	return At(chapter, verse), nil
}

// Within checks that both ends of r exist in layout.
func Within(layout Layout, r Range) error {
	for _, l := range []Locus{r.Start, r.End} {
		if l.Chapter < 1 || l.Chapter > layout.Chapters() {
			return fmt.Errorf("%w: chapter %d does not exist (max: %d)", ErrInvalidRange, l.Chapter, layout.Chapters())
		}
		if last := layout.Verses(l.Chapter); l.Verse < 1 || l.Verse > last {
			return fmt.Errorf("%w: verse %s does not exist (max: %d:%d)", ErrInvalidRange, l, l.Chapter, last)
		}
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Size returns the number of verses in r.
func Size(layout Layout, r Range) int {
	if r.Start.Chapter == r.End.Chapter {
		return r.End.Verse - r.Start.Verse + 1
	}
	n := layout.Verses(r.Start.Chapter) - r.Start.Verse + 1
	for ch := r.Start.Chapter + 1; ch < r.End.Chapter; ch++ {
		n += layout.Verses(ch)
	}
	return n + r.End.Verse
}

// ChapterRange returns the range spanning every verse of chapter.
func ChapterRange(layout Layout, chapter int) Range {
	return Range{Start: At(chapter, 1), End: At(chapter, layout.Verses(chapter))}
}

// BookRange returns the range spanning the whole book.
func BookRange(layout Layout) Range {
	last := layout.Chapters()
	return Range{Start: At(1, 1), End: At(last, layout.Verses(last))}
}
