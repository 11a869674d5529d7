package passage

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"time"
)

// Rollup summarises the history of a span of verses (a chapter or a book).
type Rollup struct {
	// Count is the number of times the whole span has been read: the
	// lowest per-verse count, with unread verses counting as 0.
	Count int
	// LastRead is the latest date among records that reach Count. It is
	// zero when the span is not fully covered.
	LastRead time.Time
	// Latest is the latest date among all records touching the span.
	Latest time.Time
	// Covered is true when every verse in the span has been read.
	Covered bool
	// Verses is the number of verses in the span.
	Verses int
	// ReadVerses is the number of verses read at least once.
	ReadVerses int
	// Ahead is the number of verses read more often than Count.
	Ahead int
}

// ChapterRollup summarises one chapter.
func (l *Ledger) ChapterRollup(chapter int) Rollup {
	if chapter < 1 || chapter > l.layout.Chapters() {
		return Rollup{}
	}
	return l.rollup(ChapterRange(l.layout, chapter))
}

// BookRollup summarises the whole book.
func (l *Ledger) BookRollup() Rollup {
	return l.rollup(BookRange(l.layout))
}

func (l *Ledger) rollup(span Range) Rollup {
	type piece struct {
		size int
		rec  Record
	}
	r := Rollup{Verses: Size(l.layout, span)}
	var pieces []piece
	for _, rec := range l.Overlapping(span) {
		inside, _ := rec.Range.Intersect(span)
		p := piece{size: Size(l.layout, inside), rec: rec}
		pieces = append(pieces, p)
		r.ReadVerses += p.size
		if rec.LastRead.After(r.Latest) {
			r.Latest = rec.LastRead
		}
	}
	r.Covered = r.Verses > 0 && r.ReadVerses == r.Verses
	if r.Covered {
		r.Count = slices.MinFunc(pieces, func(a, b piece) int {
			return cmp.Compare(a.rec.ReadCount, b.rec.ReadCount)
		}).rec.ReadCount
	}
	for _, p := range pieces {
		if p.rec.ReadCount > r.Count {
			r.Ahead += p.size
		}
		if r.Covered && p.rec.ReadCount == r.Count && p.rec.LastRead.After(r.LastRead) {
			r.LastRead = p.rec.LastRead
		}
	}
	return r
}

// ChapterRollup summarises chapter of book.
func (s *Store) ChapterRollup(book string, chapter int) (Rollup, error) {
	ledger, err := s.Ledger(book)
	if err != nil {
		return Rollup{}, err
	}
	if chapter < 1 || chapter > ledger.layout.Chapters() {
		return Rollup{}, fmt.Errorf("%w: %s has no chapter %d", ErrInvalidRange, book, chapter)
	}
	return ledger.ChapterRollup(chapter), nil
}

// BookRollup summarises the whole of book.
func (s *Store) BookRollup(book string) (Rollup, error) {
	ledger, err := s.Ledger(book)
	if err != nil {
		return Rollup{}, err
	}
	return ledger.BookRollup(), nil
}

// Passage is one chapter that has reading history, with the records
// touching it in range order. A record spanning chapters appears under each
// chapter it touches.
type Passage struct {
	Book    string
	Chapter int
	Records []Record
}

// Passages yields one Passage per chapter with at least one record, in
// canonical book order and then chapter order. The sequence can be ranged
// over any number of times.
func (s *Store) Passages() iter.Seq[Passage] {
	return func(yield func(Passage) bool) {
		for book, ledger := range s.All() {
			for _, chapter := range ledger.chapters() {
				p := Passage{
					Book:    book,
					Chapter: chapter,
					Records: ledger.Overlapping(ChapterRange(ledger.layout, chapter)),
				}
				if !yield(p) {
					return
				}
			}
		}
	}
}

// chapters returns, in order, every chapter touched by a record.
func (l *Ledger) chapters() []int {
	var out []int
	for _, rec := range l.records {
		from := rec.Range.Start.Chapter
		if n := len(out); n > 0 && out[n-1] >= from {
			from = out[n-1] + 1
		}
		for ch := from; ch <= rec.Range.End.Chapter; ch++ {
			out = append(out, ch)
		}
	}
	return out
}

// ChapterRef names a chapter of a book.
type ChapterRef struct {
	Book    string
	Chapter int
}

// Activity lists the chapters read on one day.
type Activity struct {
	Date     time.Time
	Chapters []ChapterRef
}

// Recent groups the chapters whose records were last read on or after
// since by day, newest day first. Within a day chapters keep canonical
// order.
func (s *Store) Recent(since time.Time) []Activity {
	since = Day(since)
	byDay := make(map[time.Time]*Activity)
	for p := range s.Passages() {
		for _, rec := range p.Records {
			if rec.LastRead.Before(since) {
				continue
			}
			a, ok := byDay[rec.LastRead]
			if !ok {
				a = &Activity{Date: rec.LastRead}
				byDay[rec.LastRead] = a
			}
			ref := ChapterRef{Book: p.Book, Chapter: p.Chapter}
			if n := len(a.Chapters); n == 0 || a.Chapters[n-1] != ref {
				a.Chapters = append(a.Chapters, ref)
			}
		}
	}
	out := make([]Activity, 0, len(byDay))
	for _, a := range byDay {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b Activity) int {
		return b.Date.Compare(a.Date)
	})
	return out
}
