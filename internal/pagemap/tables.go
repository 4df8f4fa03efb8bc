package pagemap

import "strings"

// SpreadTableFunc maps one spread PDF page to its left/right printed pages.
type SpreadTableFunc func(pdfPage int) (left, right *int)

// OffsetTableFunc maps one PDF page to a single printed page, nil when the
// page carries no print number.
type OffsetTableFunc func(pdfPage int) *int

// treBd4Pages is the irregular spread table for TRE Band 4.
// The scan inserts a blank half at printed 174/175 and a Tafel at 528/529,
// shifting the formula offset twice.
func treBd4Pages(pdfPage int) (left, right *int) {
	switch {
	case pdfPage < 2:
		return nil, nil
	case pdfPage == 2:
		return nil, intPtr(1)
	case pdfPage <= 88:
		l := (pdfPage - 2) * 2
		return intPtr(l), intPtr(l + 1)
	case pdfPage == 89:
		return intPtr(174), nil // right half blank
	case pdfPage == 90:
		return nil, intPtr(175) // left half blank
	case pdfPage <= 266:
		l := (pdfPage - 3) * 2
		return intPtr(l), intPtr(l + 1)
	case pdfPage == 267:
		return intPtr(528), nil // right half is a Tafel
	case pdfPage == 268:
		return nil, intPtr(529)
	default:
		l := (pdfPage - 4) * 2
		return intPtr(l), intPtr(l + 1)
	}
}

// treBd5Pages is the irregular spread table for TRE Band 5.
func treBd5Pages(pdfPage int) (left, right *int) {
	switch {
	case pdfPage < 2:
		return nil, nil
	case pdfPage == 2:
		return nil, intPtr(1)
	case pdfPage <= 125:
		l := (pdfPage - 2) * 2
		return intPtr(l), intPtr(l + 1)
	case pdfPage == 126:
		return intPtr(248), nil
	case pdfPage == 127:
		return nil, nil
	case pdfPage == 128:
		return nil, intPtr(249)
	case pdfPage <= 259:
		l := (pdfPage - 4) * 2
		return intPtr(l), intPtr(l + 1)
	case pdfPage == 260:
		return intPtr(512), nil
	case pdfPage <= 262:
		return nil, nil
	case pdfPage == 263:
		return nil, intPtr(513)
	default:
		l := (pdfPage - 7) * 2
		return intPtr(l), intPtr(l + 1)
	}
}

// kdII2Page is the piecewise offset table for Kirchliche Dogmatik II/2.
func kdII2Page(pdfPage int) *int {
	switch {
	case pdfPage < 10:
		return nil
	case pdfPage <= 716:
		return intPtr(pdfPage - 9)
	case pdfPage <= 874:
		return intPtr(pdfPage - 10)
	case pdfPage <= 885:
		return intPtr(pdfPage - 12)
	default:
		return intPtr(pdfPage - 11)
	}
}

// kdIV4Page is the offset table for Kirchliche Dogmatik IV/4
// (PDF page 13 is printed page 2, offset 11; earlier pages unnumbered).
func kdIV4Page(pdfPage int) *int {
	if pdfPage < 13 {
		return nil
	}
	return intPtr(pdfPage - 11)
}

// SpreadTableFor returns the irregular spread table for a known volume,
// or nil when the generic spread formula applies.
func SpreadTableFor(series string, volume int) SpreadTableFunc {
	if strings.EqualFold(series, "TRE") {
		switch volume {
		case 4:
			return treBd4Pages
		case 5:
			return treBd5Pages
		}
	}
	return nil
}

// OffsetTableFor returns the irregular single-page table matching a filename
// stem, or nil when no known volume matches.
func OffsetTableFor(stem string) OffsetTableFunc {
	s := strings.ToLower(stem)
	if !strings.Contains(s, "kd") {
		return nil
	}
	if containsAny(s, "ii-2", "ii.2", "ii_2") {
		return kdII2Page
	}
	if containsAny(s, "iv-4", "iv.4", "iv_4") {
		return kdIV4Page
	}
	return nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
