//go:build !windows

package preflight

import (
	"fmt"
	"syscall"
)

// minFileDescriptors is the soft limit below which large indexing runs
// risk exhausting descriptors between PDF extraction, OCR subprocess
// pipes, and the vector store.
const minFileDescriptors = 1024

// CheckFileDescriptors verifies the process file descriptor limit is
// high enough for concurrent extraction and OCR work.
func (c *Checker) CheckFileDescriptors() CheckResult {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return CheckResult{
			Name:    "File Descriptors",
			Status:  StatusWarn,
			Message: "Could not read file descriptor limit",
			Details: err.Error(),
		}
	}

	if limit.Cur < minFileDescriptors {
		return CheckResult{
			Name:    "File Descriptors",
			Status:  StatusWarn,
			Message: fmt.Sprintf("Soft limit is %d, recommend at least %d", limit.Cur, minFileDescriptors),
			Details: fmt.Sprintf("Raise with: ulimit -n %d", minFileDescriptors),
		}
	}

	return CheckResult{
		Name:    "File Descriptors",
		Status:  StatusPass,
		Message: fmt.Sprintf("Soft limit is %d", limit.Cur),
	}
}
