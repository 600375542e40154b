package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"vidscribe/internal/logging"
	"vidscribe/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the vidscribe log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			out := cmd.OutOrStdout()

			chunk, err := logs.Last(path, max(lines, 0))
			if err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			for _, line := range chunk.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(chunk.Lines) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}
			return logs.Follow(cmd.Context(), path, chunk.Offset, logs.DefaultPollInterval, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	return cmd
}
