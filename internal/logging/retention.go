package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	// Dirs prunes matching subdirectories (whole run work dirs) instead of files.
	Dirs bool
}

// CleanupOld removes entries matching the provided targets whose modification
// time is older than retentionDays. A retentionDays value of 0 disables pruning.
// It returns the number of entries removed.
func CleanupOld(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0

	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() != target.Dirs {
				continue
			}
			name := entry.Name()
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				matched, err := filepath.Match(pat, name)
				if err != nil || !matched {
					continue
				}
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			fullPath := filepath.Join(dir, name)
			if target.Dirs {
				err = os.RemoveAll(fullPath)
			} else {
				err = os.Remove(fullPath)
			}
			if err != nil {
				WarnWithContext(logger, "retention remove failed; entry remains", "retention_failed",
					String("path", fullPath),
					Error(err),
					String(FieldErrorHint, "check permissions on log_dir and work_dir"),
					String(FieldImpact, "stale file remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("stale entry pruned",
					String("path", fullPath),
					String(FieldEventType, "retention_pruned"),
				)
			}
		}
	}
	return removed
}
