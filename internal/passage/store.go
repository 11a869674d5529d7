package passage

import (
	"fmt"
	"iter"
	"time"
)

// Canon is the document-structure provider: the canonical, ordered list of
// book names and the verse layout of each.
type Canon interface {
	Books() []string
	Layout(book string) (Layout, bool)
}

// Store maps book names to ledgers. Ledgers are created lazily on the
// first mutation of a book.
type Store struct {
	canon   Canon
	now     func() time.Time
	ledgers map[string]*Ledger
	blocked map[string]error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns an empty store over canon.
func NewStore(canon Canon, opts ...Option) *Store {
	s := &Store{
		canon:   canon,
		now:     time.Now,
		ledgers: make(map[string]*Ledger),
		blocked: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date according to the store's clock.
func (s *Store) Today() time.Time {
	return Day(s.now())
}

// Books returns the canonical book order.
func (s *Store) Books() []string {
	return s.canon.Books()
}

// Record marks target in book as read once more, today.
func (s *Store) Record(book string, target Range) ([]Record, error) {
	ledger, err := s.mutable(book, target)
	if err != nil {
		return nil, err
	}
	return ledger.Record(target, s.Today()), nil
}

// ManualSet overwrites the history of target in book with count reads,
// last made on date. date may not lie after today.
func (s *Store) ManualSet(book string, target Range, count int, date time.Time) ([]Record, error) {
	if err := s.checkHistory(count, date); err != nil {
		return nil, err
	}
	ledger, err := s.mutable(book, target)
	if err != nil {
		return nil, err
	}
	return ledger.ManualSet(target, count, date)
}

// Check reports the error Record would return for target in book,
// without changing anything.
func (s *Store) Check(book string, target Range) error {
	_, err := s.layout(book, target)
	return err
}

// CheckSet reports the error ManualSet would return, without changing
// anything.
func (s *Store) CheckSet(book string, target Range, count int, date time.Time) error {
	if err := s.checkHistory(count, date); err != nil {
		return err
	}
	return s.Check(book, target)
}

func (s *Store) checkHistory(count int, date time.Time) error {
	if count < 1 {
		return fmt.Errorf("%w: %d (must be at least 1)", ErrInvalidCount, count)
	}
	if today := s.Today(); Day(date).After(today) {
		return fmt.Errorf("%w: %s is after today (%s)", ErrInvalidDate, date.Format(time.DateOnly), today.Format(time.DateOnly))
	}
	return nil
}

func (s *Store) layout(book string, target Range) (Layout, error) {
	layout, ok := s.canon.Layout(book)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBook, book)
	}
	if err := s.blocked[book]; err != nil {
		return nil, fmt.Errorf("%s is not writable until its saved progress is fixed: %w", book, err)
	}
	if err := Within(layout, target); err != nil {
		return nil, fmt.Errorf("%s %w", book, err)
	}
	return layout, nil
}

// mutable validates a mutation and returns the ledger it applies to,
// creating it if needed.
func (s *Store) mutable(book string, target Range) (*Ledger, error) {
	layout, err := s.layout(book, target)
	if err != nil {
		return nil, err
	}
	ledger, ok := s.ledgers[book]
	if !ok {
		ledger = NewLedger(layout)
		s.ledgers[book] = ledger
	}
	return ledger, nil
}

// Ledger returns the ledger for book. A known book that has never been
// read yields an empty ledger that is not retained.
func (s *Store) Ledger(book string) (*Ledger, error) {
	if ledger, ok := s.ledgers[book]; ok {
		return ledger, nil
	}
	layout, ok := s.canon.Layout(book)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBook, book)
	}
	return NewLedger(layout), nil
}

// All yields every non-empty ledger in canonical book order.
func (s *Store) All() iter.Seq2[string, *Ledger] {
	return func(yield func(string, *Ledger) bool) {
		for _, book := range s.canon.Books() {
			ledger, ok := s.ledgers[book]
			if !ok || ledger.Len() == 0 {
				continue
			}
			if !yield(book, ledger) {
				return
			}
		}
	}
}

// Restore loads persisted records for book. On ErrMalformedState the book
// is blocked: it keeps no ledger and refuses mutations.
func (s *Store) Restore(book string, records []Record) error {
	layout, ok := s.canon.Layout(book)
	if !ok {
		err := fmt.Errorf("%w: %w %q", ErrMalformedState, ErrUnknownBook, book)
		s.blocked[book] = err
		return err
	}
	ledger := NewLedger(layout)
	if err := ledger.Restore(records); err != nil {
		err = fmt.Errorf("%s: %w", book, err)
		s.Block(book, err)
		return err
	}
	delete(s.blocked, book)
	s.ledgers[book] = ledger
	return nil
}

// Block marks book as unusable because of err.
func (s *Store) Block(book string, err error) {
	delete(s.ledgers, book)
	s.blocked[book] = err
}

// Blocked returns the error that blocked book, or nil.
func (s *Store) Blocked(book string) error {
	return s.blocked[book]
}

// BlockedBooks returns every blocked book with its error.
func (s *Store) BlockedBooks() map[string]error {
	out := make(map[string]error, len(s.blocked))
	for book, err := range s.blocked {
		out[book] = err
	}
	return out
}
