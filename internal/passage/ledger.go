package passage

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Record says that an exact sub-range has been read ReadCount times, most
// recently on LastRead.
type Record struct {
	Range     Range
	ReadCount int
	LastRead  time.Time
}

// sameReading reports whether r and o carry identical history.
func (r Record) sameReading(o Record) bool {
	return r.ReadCount == o.ReadCount && r.LastRead.Equal(o.LastRead)
}

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Ledger holds the reading records of one book, sorted by range start.
// No two records overlap.
type Ledger struct {
	layout  Layout
	records []Record
}

// NewLedger returns an empty ledger for a book with the given layout.
func NewLedger(layout Layout) *Ledger {
	return &Ledger{layout: layout}
}

// Layout returns the verse structure the ledger splits against.
func (l *Ledger) Layout() Layout {
	return l.layout
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of all records in range order.
func (l *Ledger) Records() []Record {
	return slices.Clone(l.records)
}

// Overlapping returns the records intersecting target, in range order.
func (l *Ledger) Overlapping(target Range) []Record {
	var out []Record
	for i := l.firstOverlap(target); i < len(l.records); i++ {
		rec := l.records[i]
		if target.End.Before(rec.Range.Start) {
			break
		}
		out = append(out, rec)
	}
	return out
}

// firstOverlap returns the index of the first record that ends at or after
// target's start. Records are disjoint and sorted, so ends are sorted too.
func (l *Ledger) firstOverlap(target Range) int {
	return sort.Search(len(l.records), func(i int) bool {
		return !l.records[i].Range.End.Before(target.Start)
	})
}

// hitFunc transforms the fragment of an existing record that falls inside
// the target range. Returning false drops the fragment.
type hitFunc func(Record) (Record, bool)

// fillFunc produces new records for the target range given the sub-ranges
// already covered by earlier history.
type fillFunc func(covered []Range) []Record

// Record applies one reading of target on today: every verse already read
// gets its count incremented, every unread verse starts at 1, and all of
// them are stamped with today. It returns the records covering target.
func (l *Ledger) Record(target Range, today time.Time) []Record {
	today = Day(today)
	l.apply(target,
		func(hit Record) (Record, bool) {
			return Record{Range: hit.Range, ReadCount: hit.ReadCount + 1, LastRead: today}, true
		},
		func(covered []Range) []Record {
			var out []Record
			for _, gap := range l.gaps(target, covered) {
				out = append(out, Record{Range: gap, ReadCount: 1, LastRead: today})
			}
			return out
		},
	)
	return l.Overlapping(target)
}

// ManualSet replaces all history inside target with a single record of
// count reads last made on date. History outside target is untouched.
func (l *Ledger) ManualSet(target Range, count int, date time.Time) ([]Record, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: %d (must be at least 1)", ErrInvalidCount, count)
	}
	set := Record{Range: target, ReadCount: count, LastRead: Day(date)}
	l.apply(target,
		func(Record) (Record, bool) { return Record{}, false },
		func([]Range) []Record { return []Record{set} },
	)
	return l.Overlapping(target), nil
}

// apply splits every record overlapping target into the fragment inside it
// and the remainders outside it. Remainders keep their history, fragments go
// through hit, and fill adds records for the target. The ledger is then
// re-sorted and coalesced.
func (l *Ledger) apply(target Range, hit hitFunc, fill fillFunc) {
	first := l.firstOverlap(target)
	next := make([]Record, 0, len(l.records)+2)
	next = append(next, l.records[:first]...)

	var covered []Range
	i := first
	for ; i < len(l.records); i++ {
		rec := l.records[i]
		inside, ok := rec.Range.Intersect(target)
		if !ok {
			break
		}
		covered = append(covered, inside)
		for _, rest := range rec.Range.Subtract(target, l.layout) {
			next = append(next, Record{Range: rest, ReadCount: rec.ReadCount, LastRead: rec.LastRead})
		}
		if updated, keep := hit(Record{Range: inside, ReadCount: rec.ReadCount, LastRead: rec.LastRead}); keep {
			next = append(next, updated)
		}
	}
	next = append(next, fill(covered)...)
	next = append(next, l.records[i:]...)

	slices.SortFunc(next, func(a, b Record) int {
		return a.Range.Start.Compare(b.Range.Start)
	})
	l.records = next
	l.Coalesce()
}

// gaps returns the parts of target not covered by any of the sorted,
// disjoint ranges in covered.
func (l *Ledger) gaps(target Range, covered []Range) []Range {
	var out []Range
	cursor := target.Start
	for _, c := range covered {
		if cursor.Before(c.Start) {
			if end, ok := l.layout.Prev(c.Start); ok {
				out = append(out, Range{Start: cursor, End: end})
			}
		}
		next, ok := l.layout.Next(c.End)
		if !ok {
			return out
		}
		cursor = next
	}
	if !target.End.Before(cursor) {
		out = append(out, Range{Start: cursor, End: target.End})
	}
	return out
}

// Coalesce merges neighbouring records that are adjacent in the book and
// carry the same count and date.
func (l *Ledger) Coalesce() {
	if len(l.records) < 2 {
		return
	}
	out := l.records[:1]
	for _, rec := range l.records[1:] {
		last := &out[len(out)-1]
		if last.sameReading(rec) && l.adjacent(last.Range, rec.Range) {
			last.Range.End = rec.Range.End
			continue
		}
		out = append(out, rec)
	}
	l.records = out
}

func (l *Ledger) adjacent(a, b Range) bool {
	next, ok := l.layout.Next(a.End)
	return ok && next == b.Start
}

// Restore replaces the ledger's contents with persisted records. Records
// outside the layout, with a count below 1, or overlapping each other are
// rejected with ErrMalformedState; nothing is repaired.
func (l *Ledger) Restore(records []Record) error {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b Record) int {
		return a.Range.Start.Compare(b.Range.Start)
	})
	for i, rec := range sorted {
		if err := Within(l.layout, rec.Range); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedState, err)
		}
		if rec.ReadCount < 1 {
			return fmt.Errorf("%w: %s has read count %d", ErrMalformedState, rec.Range, rec.ReadCount)
		}
		if i > 0 && sorted[i-1].Range.Overlaps(rec.Range) {
			return fmt.Errorf("%w: %s overlaps %s", ErrMalformedState, sorted[i-1].Range, rec.Range)
		}
		sorted[i].LastRead = Day(rec.LastRead)
	}
	l.records = sorted
	return nil
}
