package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidscribe/internal/queue"
)

var statusCaser = cases.Title(language.English)

func formatStatusLabel(status queue.Status) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return ""
	}
	return statusCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatProgress(job queue.Job) string {
	switch job.Status {
	case queue.StatusPending:
		return "-"
	case queue.StatusCompleted:
		return "100%"
	}
	return fmt.Sprintf("%.0f%%", job.Progress*100)
}

func formatAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// jobDetail is the last column of the job table: the transcript for completed
// jobs and the error for failed ones.
func jobDetail(job queue.Job) string {
	switch job.Status {
	case queue.StatusCompleted:
		return job.OutputPath
	case queue.StatusFailed:
		if job.ErrorKind != "" {
			return fmt.Sprintf("%s: %s", job.ErrorKind, job.ErrorMessage)
		}
		return job.ErrorMessage
	}
	return ""
}

func buildJobRows(jobs []*queue.Job, now time.Time) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			filepath.Base(job.SourcePath),
			formatStatusLabel(job.Status),
			formatProgress(*job),
			formatAge(job.CreatedAt, now),
			jobDetail(*job),
		})
	}
	return rows
}

var jobTableHeaders = []string{"ID", "Source", "Status", "Progress", "Added", "Transcript / Error"}

var jobTableAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}

func buildStatusCountRows(stats map[queue.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(status), humanize.Comma(int64(count))})
	}
	return rows
}
