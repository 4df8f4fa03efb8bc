// Package preflight validates the environment before indexing starts.
//
// Checks cover disk space, directory write permissions, file descriptor
// limits, Ollama reachability, and the OCR toolchain. Results are
// surfaced through the status command and as a gate before long
// indexing runs. A marker file records the last successful run so the
// full check suite is not repeated on every invocation.
package preflight
