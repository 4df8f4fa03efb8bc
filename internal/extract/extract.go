// Package extract turns inbox documents (PDF, EPUB, TXT, MD) into ordered
// page records carrying both physical and printed page numbers. Page text is
// concatenated into one document string; CharStart offsets partition that
// string exactly, so downstream chunk offsets can be attributed back to pages.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/pagemap"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
	FormatText Format = "text"
)

// PageRecord is one extracted page (or spread half, or EPUB chapter).
type PageRecord struct {
	// PDFPage is the 1-based physical page. Spread halves share it.
	PDFPage int
	// PrintPage is the printed page number, nil for plates, frontmatter,
	// and formats without physical pages.
	PrintPage *int
	// LowConfidence marks pages whose print number came from an irregular
	// mapping zone.
	LowConfidence bool
	// Spread is true when this record is one half of a two-page spread.
	Spread bool
	// OCR is true when the text came from the OCR fallback.
	OCR bool
	// Text is the cleaned page text.
	Text string
	// CharStart is the offset of Text within Document.Text.
	CharStart int
}

// Document is the extraction result for one file.
type Document struct {
	Path   string
	Format Format
	Pages  []PageRecord
	// Text is the page texts joined with "\n\n". CharStart offsets index
	// into it.
	Text string
	// TotalPages is the physical page count (chapters for EPUB).
	TotalPages int
	// OCRPages counts pages that needed the OCR fallback.
	OCRPages int
}

// Extractor extracts page records from documents.
type Extractor struct {
	ocr    *OCRClient
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOCR attaches an OCR fallback client. Without one, image-only pages
// yield empty text and are skipped.
func WithOCR(client *OCRClient) Option {
	return func(e *Extractor) { e.ocr = client }
}

// WithLogger sets the extractor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractOpts struct {
	spread bool
}

// ExtractOption adjusts a single extraction call.
type ExtractOption func(*extractOpts)

// AsSpread treats each physical PDF page as a two-page spread, splitting
// text runs at the page midline into left and right printed pages.
func AsSpread() ExtractOption {
	return func(o *extractOpts) { o.spread = true }
}

// ExtractPages extracts a document into page records. The mapper resolves
// printed page numbers; nil falls back to identity. Files whose every page
// yields no text fail with a zero-yield error.
func (e *Extractor) ExtractPages(ctx context.Context, path string, mapper *pagemap.Mapper, opts ...ExtractOption) (*Document, error) {
	var eo extractOpts
	for _, opt := range opts {
		opt(&eo)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, pipeerr.New(pipeerr.ErrCodeFileNotFound,
				fmt.Sprintf("document not found: %s", path), err)
		}
		return nil, pipeerr.ExtractError(path, err)
	}
	if mapper == nil {
		mapper = pagemap.NewIdentityMapper()
	}

	var (
		doc *Document
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		doc, err = e.extractPDF(ctx, path, mapper, eo.spread)
	case ".epub":
		doc, err = e.extractEPUB(path)
	case ".txt", ".md":
		doc, err = e.extractText(path, mapper)
	default:
		return nil, pipeerr.New(pipeerr.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported document format %q", ext), nil).
			WithSuggestion("supported formats: .pdf, .epub, .txt, .md")
	}
	if err != nil {
		return nil, err
	}

	doc = assemble(path, doc)
	if strings.TrimSpace(doc.Text) == "" {
		return nil, pipeerr.New(pipeerr.ErrCodeZeroYield,
			fmt.Sprintf("no extractable text in %s", filepath.Base(path)), pipeerr.ErrZeroYield).
			WithSuggestion("check whether the scan has a text layer or enable OCR")
	}

	e.logger.Info("document_extracted",
		slog.String("file", filepath.Base(path)),
		slog.String("format", string(doc.Format)),
		slog.Int("pages", len(doc.Pages)),
		slog.Int("ocr_pages", doc.OCRPages),
		slog.Int("chars", len(doc.Text)))
	return doc, nil
}

// assemble drops empty pages, joins the rest, and fixes CharStart offsets so
// they exactly partition the concatenated text.
func assemble(path string, doc *Document) *Document {
	kept := doc.Pages[:0]
	var sb strings.Builder
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		page.CharStart = sb.Len()
		sb.WriteString(page.Text)
		if page.OCR {
			doc.OCRPages++
		}
		kept = append(kept, page)
	}
	doc.Path = path
	doc.Pages = kept
	doc.Text = sb.String()
	return doc
}

// PageAt returns the page record containing the given offset into
// Document.Text, or nil when the document has no pages.
func (d *Document) PageAt(offset int) *PageRecord {
	if len(d.Pages) == 0 {
		return nil
	}
	for i := len(d.Pages) - 1; i >= 0; i-- {
		if d.Pages[i].CharStart <= offset {
			return &d.Pages[i]
		}
	}
	return &d.Pages[0]
}

var (
	// Digitization watermarks that pollute scanned volumes.
	watermarkRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Digitized by Google`),
		regexp.MustCompile(`(?i)Original from UNIVERSITY OF MICHIGAN`),
		regexp.MustCompile(`(?i)http://books\.google\.com`),
		regexp.MustCompile(`(?i)Google`),
	}
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// cleanText strips digitization watermarks and collapses runs of three or
// more newlines to a paragraph break.
func cleanText(text string) string {
	for _, re := range watermarkRes {
		text = re.ReplaceAllString(text, "")
	}
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// extractText reads a whole TXT/MD file as a single page.
func (e *Extractor) extractText(path string, mapper *pagemap.Mapper) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pipeerr.ExtractError(path, err)
	}

	res := mapper.Resolve(1)
	return &Document{
		Format:     FormatText,
		TotalPages: 1,
		Pages: []PageRecord{{
			PDFPage:       1,
			PrintPage:     res.Page,
			LowConfidence: res.LowConfidence,
			Text:          cleanText(string(data)),
		}},
	}, nil
}
