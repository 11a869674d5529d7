package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/bible"
	"github.com/jsimonrichard/bible-reading-progress/internal/passage"
	"github.com/jsimonrichard/bible-reading-progress/internal/report"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <book> [chapters] [verses]",
		Short: "Record a reading dated today",
		Long: `Record that a passage was read today.

The passage is either a single reference or a book followed by chapters
and verses:

  brp record "Psalms 23"
  brp record "Genesis 1:1-2:3"
  brp record Genesis 1-3
  brp record "1 John" 3 "1-10, 16"`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			book, ranges, err := selection(a.Canon, args)
			if err != nil {
				return err
			}
			if err := a.Record(cmd.Context(), book.Name, ranges); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s\n", describe(book.Name, ranges))
			return printChapters(cmd.OutOrStdout(), a.Store, book, ranges)
		},
	}
	return cmd
}

// selection resolves command arguments to a book and its ranges. One
// argument is a reference ("Genesis 1:1-5"); more are a book name
// followed by chapters, verses and end verses as the forms take them.
func selection(c *bible.Canon, args []string) (*bible.Book, []passage.Range, error) {
	if len(args) == 1 {
		b, r, err := c.ParseReference(args[0])
		if err != nil {
			return nil, nil, err
		}
		return b, []passage.Range{r}, nil
	}
	b, err := c.Lookup(args[0])
	if err != nil {
		return nil, nil, err
	}
	parts := make([]string, 3)
	copy(parts, args[1:])
	ranges, err := b.Select(parts[0], parts[1], parts[2])
	if err != nil {
		return nil, nil, err
	}
	return b, ranges, nil
}

func describe(book string, ranges []passage.Range) string {
	labels := make([]string, len(ranges))
	for i, r := range ranges {
		labels[i] = r.Label()
	}
	return book + " " + strings.Join(labels, ", ")
}

// printChapters prints the rollup of each chapter the ranges touch.
func printChapters(w io.Writer, store *passage.Store, book *bible.Book, ranges []passage.Range) error {
	seen := make(map[int]bool)
	for _, r := range ranges {
		for ch := r.Start.Chapter; ch <= r.End.Chapter; ch++ {
			if seen[ch] {
				continue
			}
			seen[ch] = true
			rollup, err := store.ChapterRollup(book.Name, ch)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s %s\n", book.Name, report.ChapterLabel(ch, rollup))
		}
	}
	return nil
}

func parseDate(s string, today time.Time) (time.Time, error) {
	if s == "" {
		return today, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", passage.ErrInvalidDate, s)
	}
	return d, nil
}
