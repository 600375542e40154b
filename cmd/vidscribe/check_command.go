package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var modelDir string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify tools, model and directories before a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := nextRunDirs(cfg, modelDir, outputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			results := preflight.RunAll(cmd.Context(), cfg, dirs)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&modelDir, "model", "", "Model directory to check instead of the remembered one")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory to check instead of the remembered one")
	return cmd
}

// nextRunDirs resolves directories the way a run would: flag, then
// remembered state, then configuration.
func nextRunDirs(cfg *config.Config, modelFlag, outputFlag string) (preflight.Dirs, error) {
	state, err := config.NewStateStore(cfg.StatePath()).Load()
	if err != nil {
		state = config.State{}
	}
	modelDir, err := config.ResolveDir(modelFlag, state.LastModelDir, cfg.Paths.ModelDir)
	if err != nil {
		return preflight.Dirs{}, err
	}
	outputDir, err := config.ResolveDir(outputFlag, state.LastOutputDir, cfg.Paths.OutputDir)
	if err != nil {
		return preflight.Dirs{}, err
	}
	return preflight.Dirs{ModelDir: modelDir, OutputDir: outputDir}, nil
}
