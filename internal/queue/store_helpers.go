package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, source_path, output_path, status, progress, error_message, error_kind, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		sourcePath   string
		outputPath   sql.NullString
		statusStr    string
		progress     sql.NullFloat64
		errorMessage sql.NullString
		errorKind    sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&outputPath,
		&statusStr,
		&progress,
		&errorMessage,
		&errorKind,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		SourcePath:   sourcePath,
		OutputPath:   outputPath.String,
		Status:       Status(statusStr),
		Progress:     progress.Float64,
		ErrorMessage: errorMessage.String,
		ErrorKind:    errorKind.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func timestampNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
