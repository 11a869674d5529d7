package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsimonrichard/bible-reading-progress/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show where configuration and progress are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd)
		},
	}
}

func printConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config file:   %s\n", cfg.File)
	fmt.Fprintf(out, "Progress file: %s\n", cfg.ProgressPath)
	fmt.Fprintf(out, "Storage:       %s\n", cfg.Storage)
	if cfg.DebugLog != "" {
		fmt.Fprintf(out, "Debug log:     %s\n", cfg.DebugLog)
	}
	return nil
}
