package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// SidecarCandidates returns the sidecar paths checked for a document, in
// precedence order: `<stem>.meta.json`, `<name>.json` (full name plus
// .json), `<stem>.json`.
func SidecarCandidates(docPath string) []string {
	ext := filepath.Ext(docPath)
	stem := strings.TrimSuffix(docPath, ext)
	return []string{
		stem + ".meta.json",
		docPath + ".json",
		stem + ".json",
	}
}

// FindSidecar returns the first existing sidecar for a document, or "".
func FindSidecar(docPath string) string {
	for _, candidate := range SidecarCandidates(docPath) {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// patch mirrors Parsed with pointer fields so a sidecar overrides exactly
// the fields it names and nothing else.
type patch struct {
	Author        *string   `json:"author"`
	Title         *string   `json:"title"`
	Year          *int      `json:"year"`
	DocType       *DocType  `json:"doc_type"`
	Languages     *[]string `json:"languages"`
	TheologyField *string   `json:"theology_field"`
	Tags          *[]string `json:"tags"`
	Series        *string   `json:"series"`
	Volume        *int      `json:"volume"`
	ChunkSize     *int      `json:"chunk_size"`
	ChunkOverlap  *int      `json:"chunk_overlap"`
	PageOffset    *int      `json:"page_offset"`
	Spread        *bool     `json:"spread"`
	Confidence    *float64  `json:"confidence"`
}

func (pt *patch) applyTo(parsed *Parsed) {
	if pt.Author != nil {
		parsed.Author = *pt.Author
	}
	if pt.Title != nil {
		parsed.Title = *pt.Title
	}
	if pt.Year != nil {
		parsed.Year = pt.Year
	}
	if pt.DocType != nil {
		parsed.DocType = *pt.DocType
	}
	if pt.Languages != nil {
		parsed.Languages = *pt.Languages
	}
	if pt.TheologyField != nil {
		parsed.TheologyField = *pt.TheologyField
	}
	if pt.Tags != nil {
		parsed.Tags = *pt.Tags
	}
	if pt.Series != nil {
		parsed.Series = *pt.Series
	}
	if pt.Volume != nil {
		parsed.Volume = pt.Volume
	}
	if pt.ChunkSize != nil {
		parsed.ChunkSize = *pt.ChunkSize
	}
	if pt.ChunkOverlap != nil {
		parsed.ChunkOverlap = *pt.ChunkOverlap
	}
	if pt.PageOffset != nil {
		parsed.PageOffset = *pt.PageOffset
	}
	if pt.Spread != nil {
		parsed.Spread = *pt.Spread
	}
	if pt.Confidence != nil {
		parsed.Confidence = *pt.Confidence
	}
}

// ApplySidecar merges the document's sidecar (if any) into parsed and
// returns the sidecar path used. A malformed sidecar is an error; a missing
// one is not.
func ApplySidecar(docPath string, parsed *Parsed) (string, error) {
	sidecar := FindSidecar(docPath)
	if sidecar == "" {
		return "", nil
	}

	data, err := os.ReadFile(sidecar)
	if err != nil {
		return "", pipeerr.New(pipeerr.ErrCodeConfigInvalid,
			fmt.Sprintf("read metadata sidecar %s", filepath.Base(sidecar)), err)
	}

	var pt patch
	if err := json.Unmarshal(data, &pt); err != nil {
		return "", pipeerr.New(pipeerr.ErrCodeConfigInvalid,
			fmt.Sprintf("malformed metadata sidecar %s", filepath.Base(sidecar)), err)
	}

	pt.applyTo(parsed)
	return sidecar, nil
}

// ApplyOverrides applies caller-supplied field overrides last, after both
// the filename parse and any sidecar. Unknown keys are ignored.
func ApplyOverrides(parsed *Parsed, overrides map[string]any) {
	if len(overrides) == 0 {
		return
	}

	// Round-trip through JSON so override values follow the same coercion
	// rules as sidecar files.
	data, err := json.Marshal(overrides)
	if err != nil {
		return
	}
	var pt patch
	if err := json.Unmarshal(data, &pt); err != nil {
		return
	}
	pt.applyTo(parsed)
}
