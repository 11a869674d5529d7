package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
)

func newSetCmd() *cobra.Command {
	var (
		count int
		date  string
	)

	cmd := &cobra.Command{
		Use:   "set <book> [chapters] [verses] [end-verses]",
		Short: "Overwrite the reading history of a passage",
		Long: `Set how many times a passage has been read and when it was last read,
replacing whatever was recorded for those verses.

With no chapters the whole book is set. With a chapter range, verses
apply to the first chapter and end-verses to the last:

  brp set Ruth --count 3 --date 2023-12-24
  brp set "Genesis 1:1-2:3" --count 2
  brp set Exodus 1-3 5-22 "1-10" --count 1`,
		Args: cobra.RangeArgs(1, 4),
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
			d, err := parseDate(date, a.Store.Today())
			if err != nil {
				return err
			}
			if err := a.ManualSet(cmd.Context(), book.Name, ranges, count, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %dx, last read %s\n", describe(book.Name, ranges), count, d.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 1, "times the passage has been read")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date last read, YYYY-MM-DD (default today)")

	return cmd
}
