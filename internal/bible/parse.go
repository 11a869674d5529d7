package bible

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
)

// ParseChapters parses "3" or "3-5" into an inclusive chapter span.
func (b *Book) ParseChapters(s string) (first, last int, err error) {
	s = strings.TrimSpace(s)
	startText, endText, isRange := strings.Cut(s, "-")
	if first, err = atoi("chapter", startText); err != nil {
		return 0, 0, err
	}
	last = first
	if isRange {
		if last, err = atoi("chapter", endText); err != nil {
			return 0, 0, err
		}
	}
	for _, ch := range []int{first, last} {
		if ch < 1 || ch > b.Chapters() {
			return 0, 0, fmt.Errorf("%w: %s chapter %d doesn't exist (max: %d)", passage.ErrInvalidRange, b.Name, ch, b.Chapters())
		}
	}
	if first > last {
		return 0, 0, fmt.Errorf("%w: start chapter (%d) must be <= end chapter (%d)", passage.ErrInvalidRange, first, last)
	}
	return first, last, nil
}

// ParseVerses parses a verse list such as "1-5, 7, 9-12" within chapter.
// An empty list selects the whole chapter.
func (b *Book) ParseVerses(chapter int, s string) ([]passage.Range, error) {
	last := b.Verses(chapter)
	if last == 0 {
		return nil, fmt.Errorf("%w: %s chapter %d doesn't exist (max: %d)", passage.ErrInvalidRange, b.Name, chapter, b.Chapters())
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return []passage.Range{passage.ChapterRange(b, chapter)}, nil
	}
	var out []passage.Range
	for _, part := range strings.Split(s, ",") {
		startText, endText, isRange := strings.Cut(strings.TrimSpace(part), "-")
		start, err := atoi("verse", startText)
		if err != nil {
			return nil, err
		}
		end := start
		if isRange {
			if end, err = atoi("verse", endText); err != nil {
				return nil, err
			}
		}
		r, err := passage.NewRange(passage.At(chapter, start), passage.At(chapter, end))
		if err != nil {
			return nil, err
		}
		if err := passage.Within(b, r); err != nil {
			return nil, fmt.Errorf("%s %w", b.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Select turns form input into ranges. chapters is "3" or "3-5"; verses
// applies to the first chapter and endVerses to the last chapter of a
// span, with chapters in between read whole. Empty chapters selects the
// whole book. Overlapping and adjacent selections are merged so that each
// verse appears once.
func (b *Book) Select(chapters, verses, endVerses string) ([]passage.Range, error) {
	if strings.TrimSpace(chapters) == "" {
		return []passage.Range{passage.BookRange(b)}, nil
	}
	first, last, err := b.ParseChapters(chapters)
	if err != nil {
		return nil, err
	}
	var out []passage.Range
	for ch := first; ch <= last; ch++ {
		list := ""
		switch ch {
		case first:
			list = verses
		case last:
			list = endVerses
		}
		rs, err := b.ParseVerses(ch, list)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return b.merge(out), nil
}

func (b *Book) merge(rs []passage.Range) []passage.Range {
	slices.SortFunc(rs, func(x, y passage.Range) int {
		return x.Start.Compare(y.Start)
	})
	var out []passage.Range
	for _, r := range rs {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			next, ok := b.Next(prev.End)
			if r.Start.Compare(prev.End) <= 0 || (ok && next == r.Start) {
				if prev.End.Before(r.End) {
					prev.End = r.End
				}
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

var referencePattern = regexp.MustCompile(`^(.+?)(?:\s+(\d+(?::\d+)?)(?:\s*-\s*(\d+(?::\d+)?))?)?$`)

// ParseReference parses a textual reference such as "Genesis 1:1-2:3",
// "1 John 3:16", "Psalms 23-25" or "Jude" into a book and one range.
func (c *Canon) ParseReference(s string) (*Book, passage.Range, error) {
	m := referencePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, passage.Range{}, fmt.Errorf("%w: cannot parse reference %q", passage.ErrInvalidRange, s)
	}
	b, err := c.Lookup(m[1])
	if err != nil {
		return nil, passage.Range{}, err
	}
	r, err := b.parseSpan(m[2], m[3])
	if err != nil {
		return nil, passage.Range{}, err
	}
	return b, r, nil
}

// parseSpan resolves the numeric part of a reference. A bare chapter
// expands to the whole chapter; an end without a chapter reuses the start
// chapter when the start names a verse.
func (b *Book) parseSpan(startText, endText string) (passage.Range, error) {
	if startText == "" {
		return passage.BookRange(b), nil
	}
	start, startHasVerse, err := parseRefLocus(startText)
	if err != nil {
		return passage.Range{}, err
	}
	if !startHasVerse {
		start.Verse = 1
	}
	var end passage.Locus
	switch {
	case endText == "" && startHasVerse:
		end = start
	case endText == "":
		end = passage.At(start.Chapter, b.Verses(start.Chapter))
	default:
		loc, endHasVerse, err := parseRefLocus(endText)
		if err != nil {
			return passage.Range{}, err
		}
		switch {
		case endHasVerse:
			end = loc
		case startHasVerse:
			end = passage.At(start.Chapter, loc.Chapter)
		default:
			end = passage.At(loc.Chapter, b.Verses(loc.Chapter))
		}
	}
	if b.Verses(start.Chapter) == 0 {
		return passage.Range{}, fmt.Errorf("%w: %s chapter %d doesn't exist (max: %d)", passage.ErrInvalidRange, b.Name, start.Chapter, b.Chapters())
	}
	if b.Verses(end.Chapter) == 0 {
		return passage.Range{}, fmt.Errorf("%w: %s chapter %d doesn't exist (max: %d)", passage.ErrInvalidRange, b.Name, end.Chapter, b.Chapters())
	}
	r, err := passage.NewRange(start, end)
	if err != nil {
		return passage.Range{}, err
	}
	if err := passage.Within(b, r); err != nil {
		return passage.Range{}, fmt.Errorf("%s %w", b.Name, err)
	}
	return r, nil
}

func parseRefLocus(s string) (passage.Locus, bool, error) {
	chapterText, verseText, hasVerse := strings.Cut(s, ":")
	chapter, err := atoi("chapter", chapterText)
	if err != nil {
		return passage.Locus{}, false, err
	}
	if !hasVerse {
		return passage.At(chapter, 0), false, nil
	}
	verse, err := atoi("verse", verseText)
	if err != nil {
		return passage.Locus{}, false, err
	}
	return passage.At(chapter, verse), true, nil
}

func atoi(what, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s number: %q", passage.ErrInvalidRange, what, strings.TrimSpace(s))
	}
	return n, nil
}
