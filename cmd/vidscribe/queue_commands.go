package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidscribe/internal/config"
	"vidscribe/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job table",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				jobs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(jobTableHeaders, buildJobRows(jobs, time.Now()), jobTableAligns))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove jobs from the table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueueEdit(func(_ *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					job, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if job == nil {
						fmt.Fprintf(out, "Job %d not found\n", id)
						continue
					}
					if job.Status.IsProcessing() {
						// No run holds the lock, so this row was left by a crashed run.
						fmt.Fprintf(out, "Job %d is %s from an interrupted run; the next run returns it to pending\n", id, strings.ToLower(formatStatusLabel(job.Status)))
						continue
					}
					if _, err := store.Remove(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Job %d removed\n", id)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all jobs that are not being processed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueEdit(func(_ *config.Config, store *queue.Store) error {
				var removed int64
				var err error
				label := "jobs"
				if clearCompleted {
					removed, err = store.ClearCompleted(cmd.Context())
					label = "completed jobs"
				} else {
					removed, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Only remove completed jobs")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed or cancelled jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d job(s) returned to pending\n", updated)
					return nil
				}
				return retryIDs(cmd, store, ids, out)
			})
		},
	}
}

// retryIDs reports a per-id outcome so a typo does not pass silently.
func retryIDs(cmd *cobra.Command, store *queue.Store, ids []int64, out io.Writer) error {
	for _, id := range ids {
		job, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if job == nil {
			fmt.Fprintf(out, "Job %d not found\n", id)
			continue
		}
		if job.Status != queue.StatusFailed && job.Status != queue.StatusCancelled {
			fmt.Fprintf(out, "Job %d is %s (only failed or cancelled jobs can be retried)\n", id, strings.ToLower(formatStatusLabel(job.Status)))
			continue
		}
		if _, err := store.RetryFailed(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Job %d returned to pending\n", id)
	}
	return nil
}

func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(strings.ToLower(strings.TrimSpace(value)))
		if !ok {
			return nil, errors.New("unknown status " + strconv.Quote(value))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
