package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/theolab/theoindex/internal/config"
)

// CheckStatus represents the outcome of a single check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// CheckResult holds the outcome of one environment check.
type CheckResult struct {
	Name     string
	Status   CheckStatus
	Message  string
	Details  string
	Required bool
}

// Checker runs environment checks against a resolved configuration.
type Checker struct {
	cfg     *config.Config
	offline bool
	verbose bool
	out     io.Writer
	timeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithOffline skips checks that require network access.
func WithOffline() Option {
	return func(c *Checker) { c.offline = true }
}

// WithVerbose enables detail lines in PrintResults.
func WithVerbose() Option {
	return func(c *Checker) { c.verbose = true }
}

// WithOutput sets the writer used by PrintResults.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.out = w }
}

// WithTimeout bounds network probes such as the Ollama check.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// NewChecker creates a Checker for the given configuration.
func NewChecker(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:     cfg,
		out:     os.Stdout,
		timeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll executes every check and returns the results in display order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	results := []CheckResult{
		c.CheckDiskSpace(),
		c.CheckWritePermissions(),
		c.CheckFileDescriptors(),
	}
	if c.offline {
		results = append(results, CheckResult{
			Name:    "Ollama",
			Status:  StatusWarn,
			Message: "Skipped (offline mode)",
			Details: "Embeddings will use the static fallback",
		})
	} else {
		results = append(results, c.CheckOllama(ctx))
	}
	results = append(results, c.CheckOCRTools())
	return results
}

// CheckWritePermissions verifies the inbox, archive, and data
// directories are writable, creating the archive and data directories
// if they do not exist yet. The inbox must already exist.
func (c *Checker) CheckWritePermissions() CheckResult {
	type dirCheck struct {
		label  string
		path   string
		create bool
	}
	dirs := []dirCheck{
		{"inbox", c.cfg.Paths.Inbox, false},
		{"archive", c.cfg.Paths.Archive, true},
		{"data", c.cfg.Paths.Data, true},
	}

	for _, d := range dirs {
		if d.path == "" {
			continue
		}
		info, err := os.Stat(d.path)
		if err != nil {
			if !os.IsNotExist(err) {
				return CheckResult{
					Name:     "Write Permissions",
					Status:   StatusFail,
					Message:  fmt.Sprintf("Cannot access %s directory", d.label),
					Details:  err.Error(),
					Required: true,
				}
			}
			if !d.create {
				return CheckResult{
					Name:     "Write Permissions",
					Status:   StatusFail,
					Message:  fmt.Sprintf("Missing %s directory: %s", d.label, d.path),
					Details:  "Create the directory or adjust paths in the configuration",
					Required: true,
				}
			}
			if err := os.MkdirAll(d.path, 0o755); err != nil {
				return CheckResult{
					Name:     "Write Permissions",
					Status:   StatusFail,
					Message:  fmt.Sprintf("Cannot create %s directory", d.label),
					Details:  err.Error(),
					Required: true,
				}
			}
		} else if !info.IsDir() {
			return CheckResult{
				Name:     "Write Permissions",
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s path is not a directory: %s", d.label, d.path),
				Required: true,
			}
		}

		probe := filepath.Join(d.path, ".theoindex-write-test")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return CheckResult{
				Name:     "Write Permissions",
				Status:   StatusFail,
				Message:  fmt.Sprintf("%s directory is not writable", d.label),
				Details:  err.Error(),
				Required: true,
			}
		}
		os.Remove(probe)
	}

	return CheckResult{
		Name:     "Write Permissions",
		Status:   StatusPass,
		Message:  "Inbox, archive, and data directories are writable",
		Required: true,
	}
}

// HasCriticalFailures reports whether any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Required && r.Status == StatusFail {
			return true
		}
	}
	return false
}

// SummaryStatus reduces a result set to a single status string.
func SummaryStatus(results []CheckResult) string {
	warned := false
	for _, r := range results {
		switch r.Status {
		case StatusFail:
			if r.Required {
				return "failed"
			}
			warned = true
		case StatusWarn:
			warned = true
		}
	}
	if warned {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults writes a human-readable report to the configured writer.
func (c *Checker) PrintResults(results []CheckResult) {
	fmt.Fprintln(c.out, "theoindex System Check")
	fmt.Fprintln(c.out, "======================")
	for _, r := range results {
		icon := "✓"
		switch r.Status {
		case StatusWarn:
			icon = "⚠"
		case StatusFail:
			icon = "✗"
		}
		fmt.Fprintf(c.out, "%s %-18s %s\n", icon, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			fmt.Fprintf(c.out, "  %s\n", r.Details)
		}
	}
	fmt.Fprintf(c.out, "\nStatus: %s\n", SummaryStatus(results))
}
