package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vidscribe/internal/batchrun"
	"vidscribe/internal/config"
	"vidscribe/internal/deps"
	"vidscribe/internal/preflight"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
	"vidscribe/internal/recognizer"
	"vidscribe/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var modelDir string
	var outputDir string
	var concurrency int
	var plain bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transcribe every pending job",
		Long: "Transcribe every pending job in submission order.\n" +
			"Ctrl+C stops cleanly: in-flight jobs end cancelled and the rest stay pending.\n" +
			"A second Ctrl+C aborts immediately.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 0 {
				return fmt.Errorf("--concurrency must not be negative (0 uses batch.concurrency), got %d", concurrency)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
					return missingDepsError(missing)
				}

				out := cmd.OutOrStdout()
				live := !plain && isTerminal(out)
				logger, err := runLogger(cfg, live)
				if err != nil {
					return err
				}

				var view progressView
				runner, err := batchrun.New(cfg, store, batchrun.Options{
					ModelDir:    modelDir,
					OutputDir:   outputDir,
					Concurrency: concurrency,
					Logger:      logger,
					OnStart: func(batch queue.Batch, sink *progress.Sink) {
						fmt.Fprintf(out, "Transcribing %d job(s) into %s\n", len(batch.Jobs), batch.OutputDir)
						view = startProgressView(out, batch, sink, live)
					},
				})
				if err != nil {
					return err
				}

				runCtx, abort := context.WithCancel(cmd.Context())
				defer abort()
				stopSignals := watchInterrupts(cmd.ErrOrStderr(), runner.Cancel, abort)
				defer stopSignals()

				started := time.Now()
				result, err := runner.Run(runCtx)
				if view != nil {
					view.stop()
				}
				if errors.Is(err, batchrun.ErrBusy) {
					return errors.New("another vidscribe run is in progress")
				}
				if err != nil {
					return batchError(err)
				}
				if len(result.Batch.Jobs) == 0 {
					fmt.Fprintln(out, "No pending jobs")
					return nil
				}
				printRunSummary(out, result, time.Since(started))
				if result.Summary.HasFailures() {
					return fmt.Errorf("%d job(s) failed", result.Summary.Failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&modelDir, "model", "", "Speech model directory (remembered for later runs)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Transcript output directory (remembered for later runs)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Jobs processed at once (default from config)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of live bars")
	return cmd
}

// batchError adds a diagnosis hint to batch-scoped failures the user has to
// fix before jobs can run. Jobs stay pending in that case.
func batchError(err error) error {
	var loadErr *recognizer.ModelLoadError
	if services.IsConfiguration(err) || errors.As(err, &loadErr) {
		return fmt.Errorf("%w (jobs left pending; run `vidscribe check` for details)", err)
	}
	return err
}

// watchInterrupts maps the first interrupt to a clean cancel and the second
// to an immediate abort. The returned func stops watching.
func watchInterrupts(errOut io.Writer, cancel func(), abort func()) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		count := 0
		for {
			select {
			case <-done:
				return
			case <-signals:
				count++
				if count == 1 {
					fmt.Fprintln(errOut, "Cancelling: in-flight jobs stop at the next frame (Ctrl+C again to abort)")
					cancel()
					continue
				}
				abort()
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

func missingDepsError(missing []deps.Status) error {
	parts := make([]string, 0, len(missing))
	for _, status := range missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	return fmt.Errorf("missing required tools: %s; run `vidscribe check` for details", strings.Join(parts, ", "))
}

func printRunSummary(out io.Writer, result batchrun.Result, elapsed time.Duration) {
	summary := result.Summary
	fmt.Fprintf(out, "\nCompleted %d, failed %d, cancelled %d, pending %d in %s\n",
		summary.Completed, summary.Failed, summary.Cancelled, summary.Pending,
		elapsed.Round(100*time.Millisecond))
	for _, job := range summary.Jobs {
		switch job.Status {
		case queue.StatusCompleted:
			fmt.Fprintf(out, "  ok      #%d %s -> %s\n", job.ID, filepath.Base(job.SourcePath), job.OutputPath)
		case queue.StatusFailed:
			fmt.Fprintf(out, "  failed  #%d %s: %s\n", job.ID, filepath.Base(job.SourcePath), job.ErrorMessage)
		}
	}
	if summary.Pending > 0 {
		fmt.Fprintln(out, "Pending jobs stay queued; run `vidscribe run` again to continue.")
	}
	if summary.Failed > 0 {
		fmt.Fprintln(out, "Use `vidscribe queue retry` to re-queue failed jobs.")
	}
}
