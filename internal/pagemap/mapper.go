package pagemap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// Mapper resolves physical PDF pages to printed page numbers.
// The zero value is not usable; construct via one of the New*Mapper
// functions or LoadSidecar.
type Mapper struct {
	mode    Mode
	offset  int
	anchors []Anchor        // valid (non-nil Print) anchors, sorted by PDF page
	nilSet  map[int]bool    // pages explicitly marked "no print page"
	table   map[int]*int    // full-mode explicit table
	pageFn  OffsetTableFunc // full-mode lookup function, beats table
	spread  SpreadTableFunc // irregular spread table, nil for generic formula
}

// NewIdentityMapper returns the fallback mapper: print page == pdf page.
func NewIdentityMapper() *Mapper {
	return &Mapper{mode: ModeIdentity}
}

// NewOffsetMapper returns a constant-offset mapper.
// Resolution clamps to >= 1: print = max(1, pdf - offset).
func NewOffsetMapper(offset int) *Mapper {
	return &Mapper{mode: ModeOffset, offset: offset}
}

// NewFullMapper returns a mapper backed by an explicit page table.
// Pages absent from the table resolve to nil.
func NewFullMapper(pages map[int]*int) *Mapper {
	table := make(map[int]*int, len(pages))
	for k, v := range pages {
		table[k] = v
	}
	return &Mapper{mode: ModeFull, table: table}
}

// NewTableMapper returns a full-mode mapper backed by a lookup function,
// used for the irregular per-volume tables.
func NewTableMapper(fn OffsetTableFunc) *Mapper {
	return &Mapper{mode: ModeFull, pageFn: fn}
}

// NewSamplesMapper returns a mapper that interpolates between anchors.
// Anchors with nil Print mark plates and resolve to nil directly.
func NewSamplesMapper(anchors []Anchor) *Mapper {
	m := &Mapper{mode: ModeSamples, nilSet: make(map[int]bool)}
	for _, a := range anchors {
		if a.Print == nil {
			m.nilSet[a.PDF] = true
			continue
		}
		m.anchors = append(m.anchors, a)
	}
	sort.Slice(m.anchors, func(i, j int) bool { return m.anchors[i].PDF < m.anchors[j].PDF })
	if len(m.anchors) > 0 {
		first := m.anchors[0]
		m.offset = first.PDF - *first.Print
	}
	return m
}

// Mode reports how this mapper was built.
func (m *Mapper) Mode() Mode { return m.mode }

// Offset reports the base offset (first-anchor offset for samples mode).
func (m *Mapper) Offset() int { return m.offset }

// Resolve maps one physical page to its printed page number.
// It never fails: unmappable pages resolve to a nil Page.
func (m *Mapper) Resolve(pdfPage int) Resolution {
	switch m.mode {
	case ModeIdentity:
		return Resolution{Page: intPtr(pdfPage)}

	case ModeOffset:
		p := pdfPage - m.offset
		if p < 1 {
			p = 1
		}
		return Resolution{Page: intPtr(p)}

	case ModeFull:
		if m.pageFn != nil {
			return Resolution{Page: m.pageFn(pdfPage)}
		}
		if p, ok := m.table[pdfPage]; ok {
			return Resolution{Page: p}
		}
		return Resolution{}

	case ModeSamples:
		return m.resolveSamples(pdfPage)
	}
	return Resolution{Page: intPtr(pdfPage)}
}

// resolveSamples interpolates between anchor pairs.
//
// Equal offsets between consecutive anchors interpolate exactly. Unequal
// offsets signal an irregular zone (inserted plates); the earlier anchor's
// offset is applied through the gap and the result is flagged LowConfidence.
// Pages beyond either end extrapolate with the nearest anchor's offset;
// extrapolated print pages <= 0 resolve to nil (frontmatter).
func (m *Mapper) resolveSamples(pdfPage int) Resolution {
	if m.nilSet[pdfPage] {
		return Resolution{}
	}
	if len(m.anchors) == 0 {
		return Resolution{}
	}

	first := m.anchors[0]
	if pdfPage < first.PDF {
		calc := pdfPage - (first.PDF - *first.Print)
		if calc <= 0 {
			return Resolution{}
		}
		return Resolution{Page: intPtr(calc)}
	}

	last := m.anchors[len(m.anchors)-1]
	if pdfPage >= last.PDF {
		calc := pdfPage - (last.PDF - *last.Print)
		if calc <= 0 {
			return Resolution{}
		}
		return Resolution{Page: intPtr(calc)}
	}

	// Binary search for the anchor pair surrounding pdfPage.
	idx := sort.Search(len(m.anchors), func(i int) bool { return m.anchors[i].PDF > pdfPage })
	curr := m.anchors[idx-1]
	next := m.anchors[idx]

	offCurr := curr.PDF - *curr.Print
	offNext := next.PDF - *next.Print

	calc := pdfPage - offCurr
	if calc <= 0 {
		return Resolution{}
	}
	if offCurr != offNext {
		return Resolution{Page: intPtr(calc), LowConfidence: true}
	}
	return Resolution{Page: intPtr(calc)}
}

// ResolveSpread maps one spread page (two printed pages bound side by side)
// to its left and right printed page numbers. An irregular table takes
// priority; otherwise the generic formula left=(pdf-offset)*2-1, right=left+1
// applies. Either side may be nil (blank half, plate).
func (m *Mapper) ResolveSpread(pdfPage int) (left, right *int) {
	if m.spread != nil {
		return m.spread(pdfPage)
	}
	l := (pdfPage-m.offset)*2 - 1
	if l < 1 {
		return nil, nil
	}
	return intPtr(l), intPtr(l + 1)
}

// WithSpreadTable attaches an irregular spread table for known historical
// volumes. Returns the mapper for chaining.
func (m *Mapper) WithSpreadTable(fn SpreadTableFunc) *Mapper {
	m.spread = fn
	return m
}

// SidecarPath returns the mapping sidecar path for a document.
func SidecarPath(docPath string) string {
	ext := ""
	if i := strings.LastIndex(docPath, "."); i >= 0 {
		ext = docPath[i:]
	}
	return strings.TrimSuffix(docPath, ext) + ".mapping.json"
}

// LoadSidecar loads the <stem>.mapping.json sidecar next to a document.
// Returns (nil, nil) when no sidecar exists; a malformed sidecar is an error.
func LoadSidecar(docPath string) (*Mapper, error) {
	path := SidecarPath(docPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mapping sidecar: %w", err)
	}

	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeInvalidMapping,
			fmt.Sprintf("malformed mapping sidecar %s", path), err)
	}

	switch sc.Type {
	case "", "samples":
		return NewSamplesMapper(sc.Samples), nil
	case "offset":
		return NewOffsetMapper(sc.Offset), nil
	case "full":
		table := make(map[int]*int, len(sc.Pages))
		for k, v := range sc.Pages {
			pdfPage, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			table[pdfPage] = v
		}
		return NewFullMapper(table), nil
	default:
		return nil, pipeerr.New(pipeerr.ErrCodeInvalidMapping,
			fmt.Sprintf("unknown mapping type %q in %s", sc.Type, path), nil)
	}
}
