//go:build !windows

package preflight

import (
	"fmt"
	"syscall"
)

// minDiskSpace is the minimum free space required in the data
// directory before indexing. Archive copies and the vector store grow
// with the library, so runs below this threshold fail the check.
const minDiskSpace = 500 * 1024 * 1024

// CheckDiskSpace verifies the data directory's filesystem has enough
// free space for archive envelopes and the vector database.
func (c *Checker) CheckDiskSpace() CheckResult {
	path := c.cfg.Paths.Data
	if path == "" {
		path = "."
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		// Data dir may not exist yet; fall back to the working dir.
		if err2 := syscall.Statfs(".", &stat); err2 != nil {
			return CheckResult{
				Name:     "Disk Space",
				Status:   StatusWarn,
				Message:  "Could not determine free disk space",
				Details:  err.Error(),
				Required: true,
			}
		}
	}

	free := stat.Bavail * uint64(stat.Bsize)
	if free < minDiskSpace {
		return CheckResult{
			Name:     "Disk Space",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Only %s free, need at least %s", formatBytes(free), formatBytes(minDiskSpace)),
			Details:  "Free up disk space before indexing",
			Required: true,
		}
	}

	return CheckResult{
		Name:     "Disk Space",
		Status:   StatusPass,
		Message:  fmt.Sprintf("%s available", formatBytes(free)),
		Required: true,
	}
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
