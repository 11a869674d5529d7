// Package cmd is the brp command tree. With no subcommand it opens the
// dashboard.
package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/app"
	"github.com/jsimonrichard/bible-reading-progress/internal/tui"
)

// BuildInfo is injected by ldflags at release time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("brp %s (commit: %s, built: %s)", b.Version, b.Commit, b.Date)
}

// NewRootCmd creates the root command for brp.
func NewRootCmd(info BuildInfo) *cobra.Command {
	var showConfig bool

	root := &cobra.Command{
		Use:   "brp",
		Short: "Track Bible reading progress",
		Long: `Track which verses of the Bible you have read and how often.

Run without a command to open the dashboard. The commands below record
and report progress without it.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showConfig {
				return printConfig(cmd)
			}
			return runDashboard(cmd.Context())
		},
	}
	root.SetVersionTemplate(info.String() + "\n")
	root.Flags().BoolVar(&showConfig, "show-config", false, "print the config file and progress path, then exit")

	root.AddCommand(newRecordCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newRecentCmd())
	root.AddCommand(newConfigCmd())

	return root
}

func runDashboard(ctx context.Context) error {
	a, err := app.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.New(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	if m, ok := final.(tui.Model); ok {
		return m.Err()
	}
	return nil
}
