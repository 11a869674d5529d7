package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/report"
)

func newRecentCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the chapters read in the last few days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1, got %d", days)
			}
			a, err := app.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			today := a.Store.Today()
			lines := report.RecentLines(a.Store.Recent(today.AddDate(0, 0, 1-days)), today)
			out := cmd.OutOrStdout()
			if len(lines) == 0 {
				fmt.Fprintf(out, "Nothing read in the last %d days.\n", days)
				return nil
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "n", 7, "number of days to look back, today included")

	return cmd
}
