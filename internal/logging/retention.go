package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs removes files in dir matching pattern whose modification time
// is older than maxAge. The file at keep is never removed. It returns the
// number of files deleted; a non-positive maxAge disables pruning.
func PruneRunLogs(logger *slog.Logger, dir, pattern, keep string, maxAge time.Duration) int {
	if maxAge <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	keepAbs, _ := filepath.Abs(keep)
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil && abs == keepAbs {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("removed", removed),
		)
	}
	return removed
}
