package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts, run state and the directories the next run uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)

				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				state, stateErr := config.NewStateStore(cfg.StatePath()).Load()
				modelDir, _ := config.ResolveDir(state.LastModelDir, cfg.Paths.ModelDir)
				outputDir, _ := config.ResolveDir(state.LastOutputDir, cfg.Paths.OutputDir)

				running, err := runInProgress(cfg)
				if err != nil {
					return err
				}

				configLabel := ctx.configPath
				if !ctx.configExists {
					configLabel += " (not found; defaults)"
				}
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configLabel, colorize))
				if running {
					fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "in progress", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Run", statusOK, "idle", colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Engine", statusInfo, cfg.Recognition.Engine, colorize))
				fmt.Fprintln(out, renderStatusLine("Model directory", dirKind(modelDir), orUnset(modelDir), colorize))
				fmt.Fprintln(out, renderStatusLine("Output directory", dirKind(outputDir), orUnset(outputDir), colorize))
				if stateErr != nil {
					fmt.Fprintln(out, renderStatusLine("Remembered dirs", statusWarn, stateErr.Error(), colorize))
				}

				jobsKind := statusOK
				if health.Failed > 0 {
					jobsKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Jobs", jobsKind, fmt.Sprintf(
					"%d total, %d pending, %d processing, %d completed, %d failed, %d cancelled",
					health.Total, health.Pending, health.Processing, health.Completed, health.Failed, health.Cancelled,
				), colorize))

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if rows := buildStatusCountRows(stats); len(rows) > 0 {
					fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				return nil
			})
		},
	}
}

// runInProgress tests the run lock without holding it.
func runInProgress(cfg *config.Config) (bool, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("check run lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	return false, lock.Unlock()
}

func dirKind(dir string) statusKind {
	if dir == "" {
		return statusWarn
	}
	return statusInfo
}

func orUnset(value string) string {
	if value == "" {
		return "not set"
	}
	return value
}
