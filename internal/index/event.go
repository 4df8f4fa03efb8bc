// Package index orchestrates the ingestion pipeline: inbox discovery,
// metadata resolution, extraction, chunking, embedding, vector upsert, and
// the JSON archive write, one file at a time.
package index

// Status classifies a pipeline event.
type Status string

const (
	// StatusProcessing opens work on one file.
	StatusProcessing Status = "processing"
	// StatusIndexing reports one embed+upsert batch.
	StatusIndexing Status = "indexing"
	// StatusCompleted closes a successfully indexed file.
	StatusCompleted Status = "completed"
	// StatusWarning flags a file left in place (zero chunks).
	StatusWarning Status = "warning"
	// StatusError flags a failed file; the run continues.
	StatusError Status = "error"
	// StatusDone is the terminal summary event.
	StatusDone Status = "done"
)

// FileDetail is one file's entry in the run summary.
type FileDetail struct {
	Name    string `json:"name"`
	Chunks  int    `json:"chunks"`
	DocType string `json:"doc_type"`
	Author  string `json:"author"`
}

// Summary aggregates a whole run.
type Summary struct {
	TotalFiles     int          `json:"total_files"`
	ProcessedFiles int          `json:"processed_files"`
	TotalChunks    int          `json:"total_chunks"`
	Files          []FileDetail `json:"files_detail"`
}

// Event is one progress update from a pipeline run. Exactly one terminal
// event with StatusDone carries the summary.
type Event struct {
	Status   Status
	File     string
	Progress int
	Message  string
	Chunks   int
	Err      error
	Summary  *Summary
}
