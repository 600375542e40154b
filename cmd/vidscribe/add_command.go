package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/manifest"
	"vidscribe/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "add [files...]",
		Short: "Add video files to the transcription queue",
		Long: "Add video files to the transcription queue in the given order.\n" +
			"With --manifest, sources are read from a YAML manifest and its output_dir\n" +
			"and model_dir are remembered for the next run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := resolveSource(arg)
				if err != nil {
					return err
				}
				sources = append(sources, abs)
			}

			var m *manifest.Manifest
			if strings.TrimSpace(manifestPath) != "" {
				loaded, err := manifest.Load(manifestPath)
				if err != nil {
					return err
				}
				m = loaded
				for _, source := range m.Sources {
					if err := checkSourceFile(source); err != nil {
						return err
					}
				}
				sources = append(sources, m.Sources...)
			}
			if len(sources) == 0 {
				return errors.New("no source files given (pass paths or --manifest)")
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				added := 0
				for _, source := range sources {
					job, err := store.NewJob(cmd.Context(), source)
					if errors.Is(err, queue.ErrDuplicateSource) {
						fmt.Fprintf(out, "Skipped %s (already queued)\n", filepath.Base(source))
						continue
					}
					if err != nil {
						return err
					}
					added++
					fmt.Fprintf(out, "Queued job #%d (%s)\n", job.ID, filepath.Base(source))
				}
				if m != nil {
					if err := rememberManifestDirs(cmd, cfg, m); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "%d of %d source(s) queued\n", added, len(sources))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest listing sources")
	return cmd
}

func resolveSource(arg string) (string, error) {
	absPath, err := config.ExpandPath(arg)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if err := checkSourceFile(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

func checkSourceFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func rememberManifestDirs(cmd *cobra.Command, cfg *config.Config, m *manifest.Manifest) error {
	if m.OutputDir == "" && m.ModelDir == "" {
		return nil
	}
	store := config.NewStateStore(cfg.StatePath())
	state, err := store.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if m.OutputDir != "" {
		state.LastOutputDir = m.OutputDir
		fmt.Fprintf(out, "Output directory for the next run: %s\n", m.OutputDir)
	}
	if m.ModelDir != "" {
		state.LastModelDir = m.ModelDir
		fmt.Fprintf(out, "Model directory for the next run: %s\n", m.ModelDir)
	}
	return store.Save(state)
}
