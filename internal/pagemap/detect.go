package pagemap

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Band identifies the cropped region of a page OCRed during detection.
// Page numbers live in the top or bottom margin, so only those bands are
// rasterized (at reduced DPI, for speed).
type Band string

const (
	BandTop    Band = "top"
	BandBottom Band = "bottom"
)

// PageSource supplies per-page text for page-number detection.
// OCRBand may return an error when no OCR toolchain is installed; detection
// then proceeds on native text alone.
type PageSource interface {
	PageText(pdfPage int) (string, error)
	OCRBand(ctx context.Context, pdfPage int, band Band) (string, error)
}

// NumberType classifies a detected page number.
type NumberType string

const (
	NumberArabic NumberType = "arabic"
	NumberRoman  NumberType = "roman"
	NumberNone   NumberType = "none"
)

// PageNumber is one page's detection result.
type PageNumber struct {
	PDFPage    int
	Print      int // Arabic value, or Roman value for NumberRoman
	Type       NumberType
	Confidence float64
	RawLine    string
}

const (
	// DefaultSamplePages is the prefix of pages inspected before
	// extrapolating the offset to the whole document.
	DefaultSamplePages = 30

	// maxOffsetDeviation bounds outlier correction: a detected number that
	// deviates from the expected arithmetic sequence by more than this is
	// left alone rather than corrected.
	maxOffsetDeviation = 2

	// checkLines is how many leading and trailing lines of a page are
	// scanned for a page number.
	checkLines = 3
)

var (
	arabicSoloRe = regexp.MustCompile(`^\s*(\d{1,3})\s*$`)
	arabicDashRe = regexp.MustCompile(`[-–—]\s*(\d{1,3})\s*[-–—]`)
	romanSoloRe  = regexp.MustCompile(`^\s*(x{0,3}(?:ix|iv|v?i{0,3}))\s*$`)
	romanDashRe  = regexp.MustCompile(`[-–—]\s*(x{0,3}(?:ix|iv|v?i{0,3}))\s*[-–—]`)

	// Numbers that look like page numbers but aren't: years, ISBNs, and
	// bibliographic page references.
	excludeRes = []*regexp.Regexp{
		regexp.MustCompile(`19\d{2}`),
		regexp.MustCompile(`20\d{2}`),
		regexp.MustCompile(`ISBN`),
		regexp.MustCompile(`pp?\.\s*\d+`),
	}
)

var romanValues = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5,
	"vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10,
	"xi": 11, "xii": 12, "xiii": 13, "xiv": 14, "xv": 15,
	"xvi": 16, "xvii": 17, "xviii": 18, "xix": 19, "xx": 20,
	"xxi": 21, "xxii": 22, "xxiii": 23, "xxiv": 24, "xxv": 25,
	"xxvi": 26, "xxvii": 27, "xxviii": 28, "xxix": 29, "xxx": 30,
}

// Detector auto-detects the pdf-to-print page correspondence by reading
// page-number glyphs from a sample prefix of pages.
type Detector struct {
	source  PageSource
	samples int
	useOCR  bool
	logger  *slog.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithSamplePages overrides the number of pages sampled.
func WithSamplePages(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.samples = n
		}
	}
}

// WithOCRFallback enables or disables the OCR band fallback.
func WithOCRFallback(enabled bool) DetectorOption {
	return func(d *Detector) { d.useOCR = enabled }
}

// WithLogger sets the detector's logger.
func WithLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector creates a page-number detector over the given source.
func NewDetector(source PageSource, opts ...DetectorOption) *Detector {
	d := &Detector{
		source:  source,
		samples: DefaultSamplePages,
		useOCR:  true,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect samples a prefix of pages, corrects outliers against the most
// frequent offset, and extrapolates to a full-document Mapper. Pages before
// the first Arabic hit are romanized or absent and resolve to nil.
func (d *Detector) Detect(ctx context.Context, totalPages int) (*Mapper, []PageNumber) {
	limit := d.samples
	if totalPages < limit {
		limit = totalPages
	}

	detected := make([]PageNumber, 0, limit)
	for pdfPage := 1; pdfPage <= limit; pdfPage++ {
		select {
		case <-ctx.Done():
			return NewIdentityMapper(), detected
		default:
		}

		pn := d.detectPage(ctx, pdfPage)
		detected = append(detected, pn)
	}

	d.correctOutliers(detected)
	return d.extend(detected, totalPages), detected
}

// detectPage tries native text first, then OCR on the margin bands.
func (d *Detector) detectPage(ctx context.Context, pdfPage int) PageNumber {
	text, err := d.source.PageText(pdfPage)
	if err == nil {
		if pn := detectFromText(pdfPage, text); pn.Type != NumberNone {
			return pn
		}
	}

	if d.useOCR {
		for _, band := range []Band{BandTop, BandBottom} {
			ocrText, err := d.source.OCRBand(ctx, pdfPage, band)
			if err != nil {
				d.logger.Debug("page_number_ocr_failed",
					slog.Int("pdf_page", pdfPage),
					slog.String("band", string(band)),
					slog.String("error", err.Error()))
				continue
			}
			if pn := detectFromText(pdfPage, ocrText); pn.Type != NumberNone {
				pn.Confidence *= 0.9 // OCR is slightly less trustworthy
				return pn
			}
		}
	}

	return PageNumber{PDFPage: pdfPage, Type: NumberNone}
}

// detectFromText scans the first and last few lines of a page for a
// page-number glyph.
func detectFromText(pdfPage int, text string) PageNumber {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	check := lines
	if len(lines) > checkLines*2 {
		check = append(append([]string{}, lines[:checkLines]...), lines[len(lines)-checkLines:]...)
	}

	for _, line := range check {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isExcluded(line) {
			continue
		}

		for _, re := range []*regexp.Regexp{arabicSoloRe, arabicDashRe} {
			if m := re.FindStringSubmatch(line); m != nil {
				num, err := strconv.Atoi(m[1])
				if err == nil && num >= 1 && num <= 999 {
					return PageNumber{
						PDFPage:    pdfPage,
						Print:      num,
						Type:       NumberArabic,
						Confidence: 0.8,
						RawLine:    line,
					}
				}
			}
		}

		lower := strings.ToLower(line)
		for _, re := range []*regexp.Regexp{romanSoloRe, romanDashRe} {
			if m := re.FindStringSubmatch(lower); m != nil && m[1] != "" {
				if value, ok := romanValues[m[1]]; ok {
					return PageNumber{
						PDFPage:    pdfPage,
						Print:      value,
						Type:       NumberRoman,
						Confidence: 0.7,
						RawLine:    line,
					}
				}
			}
		}
	}

	return PageNumber{PDFPage: pdfPage, Type: NumberNone}
}

func isExcluded(line string) bool {
	for _, re := range excludeRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// correctOutliers finds the most frequent pdf-print offset among Arabic
// detections and snaps detections deviating by at most maxOffsetDeviation
// back onto the expected sequence.
func (d *Detector) correctOutliers(detected []PageNumber) {
	var offsets []int
	for _, pn := range detected {
		if pn.Type == NumberArabic {
			offsets = append(offsets, pn.PDFPage-pn.Print)
		}
	}
	if len(offsets) < 3 {
		return
	}

	mostCommon := mostFrequent(offsets)
	for i := range detected {
		pn := &detected[i]
		if pn.Type != NumberArabic {
			continue
		}
		expected := pn.PDFPage - mostCommon
		deviation := pn.Print - expected
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation != 0 && deviation <= maxOffsetDeviation {
			pn.Print = expected
			pn.Confidence = 0.6
		}
	}
}

// extend builds a full-document table from sampled detections: the average
// Arabic offset applies from the first Arabic hit onward; earlier pages are
// romanized or absent and map to nil.
func (d *Detector) extend(detected []PageNumber, totalPages int) *Mapper {
	var offsets []int
	firstArabic := 0
	for _, pn := range detected {
		if pn.Type != NumberArabic {
			continue
		}
		offsets = append(offsets, pn.PDFPage-pn.Print)
		if firstArabic == 0 || pn.PDFPage < firstArabic {
			firstArabic = pn.PDFPage
		}
	}
	if len(offsets) == 0 {
		return NewIdentityMapper()
	}

	sum := 0
	for _, o := range offsets {
		sum += o
	}
	avgOffset := int(float64(sum)/float64(len(offsets)) + 0.5)

	table := make(map[int]*int, totalPages)
	for _, pn := range detected {
		if pn.Type == NumberArabic {
			table[pn.PDFPage] = intPtr(pn.Print)
		}
	}
	for pdfPage := 1; pdfPage <= totalPages; pdfPage++ {
		if _, ok := table[pdfPage]; ok {
			continue
		}
		if pdfPage >= firstArabic {
			calc := pdfPage - avgOffset
			if calc > 0 {
				table[pdfPage] = intPtr(calc)
			} else {
				table[pdfPage] = nil
			}
		} else {
			table[pdfPage] = nil
		}
	}

	d.logger.Info("page_numbers_detected",
		slog.Int("sampled", len(detected)),
		slog.Int("arabic_hits", len(offsets)),
		slog.Int("offset", avgOffset),
		slog.Int("body_start", firstArabic))

	return NewFullMapper(table)
}

func mostFrequent(values []int) int {
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := 0, -1
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys) // deterministic tie-breaking
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}
