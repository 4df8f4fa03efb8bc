// Package pagemap resolves physical PDF page indices to printed page numbers.
//
// Scanned theological volumes rarely agree with their own page numbering:
// frontmatter is romanized, plates interrupt the sequence, and some historical
// printings bind two printed pages per PDF page. A Mapper hides all of that
// behind Resolve/ResolveSpread.
package pagemap

// Mode identifies how a Mapper was built.
type Mode string

const (
	// ModeSamples interpolates between sparse human-provided anchor points.
	ModeSamples Mode = "samples"
	// ModeOffset applies a single constant offset.
	ModeOffset Mode = "offset"
	// ModeFull uses an explicit page-by-page table.
	ModeFull Mode = "full"
	// ModeIdentity returns the physical page unchanged. Fallback when no
	// mapping information exists; never errors.
	ModeIdentity Mode = "identity"
)

// Anchor is one sample point in a samples-mode sidecar.
// Print is nil for plates, blank pages, and unnumbered frontmatter.
type Anchor struct {
	PDF   int    `json:"pdf"`
	Print *int   `json:"print"`
	Note  string `json:"note,omitempty"`
}

// Sidecar is the on-disk schema of a <stem>.mapping.json file.
type Sidecar struct {
	Type       string          `json:"type"`
	TotalPages int             `json:"total_pages,omitempty"`
	Offset     int             `json:"offset,omitempty"`
	Samples    []Anchor        `json:"samples,omitempty"`
	Pages      map[string]*int `json:"pages,omitempty"`
}

// Resolution is the result of resolving one physical page.
type Resolution struct {
	// Page is the printed page number, or nil for plate/frontmatter pages.
	Page *int
	// LowConfidence marks pages inside an irregular zone, where adjacent
	// anchors disagree in offset and the earlier anchor's offset was applied
	// through the gap as an approximation.
	LowConfidence bool
}

func intPtr(v int) *int { return &v }
