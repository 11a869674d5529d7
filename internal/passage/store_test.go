package passage

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCanon is a two-book canon for store tests.
type testCanon map[string]chapters

func (c testCanon) Books() []string { return []string{"Genesis", "Exodus"} }

func (c testCanon) Layout(book string) (Layout, bool) {
	l, ok := c[book]
	return l, ok
}

var canon = testCanon{
	"Genesis": {31, 25, 24},
	"Exodus":  {22, 25},
}

func newStore(today string) *Store {
	return NewStore(canon, WithClock(func() time.Time { return day(today).Add(15 * time.Hour) }))
}

func TestStoreScenario(t *testing.T) {
	s := newStore("2024-01-15")
	got, err := s.Record("Genesis", rng(t, "1:1-1:10"))
	require.NoError(t, err)
	assert.Equal(t, []Record{rec(t, "1:1-1:10", 1, "2024-01-15")}, got)

	s.now = func() time.Time { return day("2024-01-16") }
	got, err = s.Record("Genesis", rng(t, "1:5-1:15"))
	require.NoError(t, err)
	assert.Equal(t, []Record{
		rec(t, "1:1-1:4", 1, "2024-01-15"),
		rec(t, "1:5-1:10", 2, "2024-01-16"),
		rec(t, "1:11-1:15", 1, "2024-01-16"),
	}, got)

	got, err = s.ManualSet("Genesis", rng(t, "1:1-1:15"), 5, day("2023-12-01"))
	require.NoError(t, err)
	assert.Equal(t, []Record{rec(t, "1:1-1:15", 5, "2023-12-01")}, got)

	ledger, err := s.Ledger("Genesis")
	require.NoError(t, err)
	assert.Equal(t, []Record{rec(t, "1:1-1:15", 5, "2023-12-01")}, ledger.Records())
}

func TestStoreErrors(t *testing.T) {
	s := newStore("2024-03-01")

	_, err := s.Record("Leviticus", rng(t, "1:1-1:2"))
	assert.ErrorIs(t, err, ErrUnknownBook)

	_, err = s.Ledger("Leviticus")
	assert.ErrorIs(t, err, ErrUnknownBook)

	_, err = s.Record("Genesis", Range{Start: At(1, 1), End: At(1, 32)})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = s.Record("Genesis", Range{Start: At(4, 1), End: At(4, 2)})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewRange(At(2, 1), At(1, 5))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = s.ManualSet("Genesis", rng(t, "1:1-1:2"), 0, day("2024-01-01"))
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = s.ManualSet("Genesis", rng(t, "1:1-1:2"), 1, day("2024-03-02"))
	assert.ErrorIs(t, err, ErrInvalidDate)

	assert.Empty(t, s.ledgers, "rejected calls create no ledgers")

	assert.ErrorIs(t, s.Check("Genesis", Range{Start: At(1, 1), End: At(1, 32)}), ErrInvalidRange)
	assert.ErrorIs(t, s.CheckSet("Genesis", rng(t, "1:1-1:2"), 0, day("2024-01-01")), ErrInvalidCount)
	assert.ErrorIs(t, s.CheckSet("Leviticus", rng(t, "1:1-1:2"), 1, day("2024-01-01")), ErrUnknownBook)
	assert.NoError(t, s.CheckSet("Genesis", rng(t, "1:1-1:2"), 1, day("2024-03-01")))
	assert.Empty(t, s.ledgers)

	_, err = s.ManualSet("Genesis", rng(t, "1:1-1:2"), 1, day("2024-03-01"))
	assert.NoError(t, err, "today is not in the future")

	ledger, err := s.Ledger("Genesis")
	require.NoError(t, err)
	assert.Equal(t, []Record{rec(t, "1:1-1:2", 1, "2024-03-01")}, ledger.Records())
}

func TestStoreRestoreBlocksMalformedBook(t *testing.T) {
	s := newStore("2024-03-01")

	require.NoError(t, s.Restore("Exodus", []Record{rec(t, "1:1-1:22", 2, "2024-02-01")}))
	err := s.Restore("Genesis", []Record{
		rec(t, "1:1-1:10", 1, "2024-01-01"),
		rec(t, "1:5-1:12", 1, "2024-01-01"),
	})
	require.ErrorIs(t, err, ErrMalformedState)
	assert.ErrorIs(t, s.Blocked("Genesis"), ErrMalformedState)

	_, err = s.Record("Genesis", rng(t, "2:1-2:2"))
	assert.ErrorIs(t, err, ErrMalformedState)

	_, err = s.Record("Exodus", rng(t, "2:1-2:2"))
	assert.NoError(t, err, "other books stay usable")

	var books []string
	for book := range s.All() {
		books = append(books, book)
	}
	assert.Equal(t, []string{"Exodus"}, books)
	assert.Contains(t, s.BlockedBooks(), "Genesis")
}

func TestStoreRestoreUnknownBook(t *testing.T) {
	s := newStore("2024-03-01")
	err := s.Restore("Tobit", []Record{rec(t, "1:1-1:2", 1, "2024-01-01")})
	assert.ErrorIs(t, err, ErrMalformedState)
	assert.ErrorIs(t, err, ErrUnknownBook)
}

func TestStoreAllCanonicalOrder(t *testing.T) {
	s := newStore("2024-03-01")
	_, err := s.Record("Exodus", rng(t, "1:1-1:2"))
	require.NoError(t, err)
	_, err = s.Record("Genesis", rng(t, "1:1-1:2"))
	require.NoError(t, err)

	var books []string
	for book, ledger := range s.All() {
		books = append(books, book)
		assert.Equal(t, 1, ledger.Len())
	}
	assert.Equal(t, []string{"Genesis", "Exodus"}, books)
}

func TestStoreRoundTrip(t *testing.T) {
	s := newStore("2024-03-01")
	_, err := s.Record("Genesis", rng(t, "1:1-2:5"))
	require.NoError(t, err)
	_, err = s.Record("Genesis", rng(t, "1:30-2:1"))
	require.NoError(t, err)
	_, err = s.ManualSet("Exodus", rng(t, "2:1-2:25"), 3, day("2023-01-01"))
	require.NoError(t, err)

	copied := newStore("2024-03-01")
	for book, ledger := range s.All() {
		records := ledger.Records()
		slices.Reverse(records)
		require.NoError(t, copied.Restore(book, records))
	}

	for book, ledger := range s.All() {
		other, err := copied.Ledger(book)
		require.NoError(t, err)
		assert.Equal(t, ledger.Records(), other.Records(), book)
	}
}
