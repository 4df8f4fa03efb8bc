package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/pagemap"
)

// ocrProbePages is how many leading pages decide whether a PDF carries a
// usable text layer.
const ocrProbePages = 3

// ocrProbeMinChars is the average stripped character count below which a
// probed PDF counts as image-only.
const ocrProbeMinChars = 50

func (e *Extractor) extractPDF(ctx context.Context, path string, mapper *pagemap.Mapper, spread bool) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, pipeerr.ExtractError(
			fmt.Sprintf("open pdf %s", filepath.Base(path)), err)
	}
	defer f.Close()

	total := reader.NumPage()
	doc := &Document{Format: FormatPDF, TotalPages: total}

	for pdfPage := 1; pdfPage <= total; pdfPage++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if spread {
			left, right := extractSpreadHalves(reader, pdfPage)
			lp, rp := mapper.ResolveSpread(pdfPage)
			doc.Pages = append(doc.Pages,
				PageRecord{PDFPage: pdfPage, PrintPage: lp, Spread: true, Text: cleanText(left)},
				PageRecord{PDFPage: pdfPage, PrintPage: rp, Spread: true, Text: cleanText(right)})
			continue
		}

		text := extractPageText(reader, pdfPage)
		ocred := false
		if strings.TrimSpace(text) == "" && e.ocr != nil && e.ocr.Available() {
			ocrText, err := e.ocr.Page(ctx, path, pdfPage)
			if err != nil {
				e.logger.Warn("ocr_page_failed",
					slog.String("file", filepath.Base(path)),
					slog.Int("pdf_page", pdfPage),
					slog.String("error", err.Error()))
			} else {
				text = ocrText
				ocred = true
			}
		}

		res := mapper.Resolve(pdfPage)
		doc.Pages = append(doc.Pages, PageRecord{
			PDFPage:       pdfPage,
			PrintPage:     res.Page,
			LowConfidence: res.LowConfidence,
			OCR:           ocred,
			Text:          cleanText(text),
		})
	}

	return doc, nil
}

// extractPageText reads one page's text layer. Malformed pages yield empty
// text instead of failing the document.
func extractPageText(reader *pdf.Reader, pdfPage int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	page := reader.Page(pdfPage)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// extractSpreadHalves splits one physical page's text runs at the page
// midline. Runs are ordered top to bottom, left to right before joining,
// since extraction order is not reliable on old scans.
func extractSpreadHalves(reader *pdf.Reader, pdfPage int) (left, right string) {
	defer func() {
		if r := recover(); r != nil {
			left, right = "", ""
		}
	}()

	page := reader.Page(pdfPage)
	if page.V.IsNull() {
		return "", ""
	}

	runs := page.Content().Text
	if len(runs) == 0 {
		return "", ""
	}

	middle := pageMidline(page, runs)

	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lb, rb strings.Builder
	lastY := map[bool]float64{}
	for _, run := range sorted {
		if strings.TrimSpace(run.S) == "" {
			continue
		}
		isLeft := run.X < middle
		b := &rb
		if isLeft {
			b = &lb
		}
		if prev, ok := lastY[isLeft]; ok && prev != run.Y {
			b.WriteString("\n")
		}
		lastY[isLeft] = run.Y
		b.WriteString(run.S)
	}
	return lb.String(), rb.String()
}

// pageMidline is the x coordinate separating the two halves of a spread:
// half the MediaBox width, or the midpoint of the text runs when the box is
// unreadable.
func pageMidline(page pdf.Page, runs []pdf.Text) float64 {
	box := page.V.Key("MediaBox")
	if !box.IsNull() && box.Len() == 4 {
		llx := box.Index(0).Float64()
		urx := box.Index(2).Float64()
		if urx > llx {
			return llx + (urx-llx)/2
		}
	}

	minX, maxX := runs[0].X, runs[0].X
	for _, run := range runs {
		if run.X < minX {
			minX = run.X
		}
		if run.X > maxX {
			maxX = run.X
		}
	}
	return minX + (maxX-minX)/2
}

// NeedsOCR probes the first few pages and reports whether the PDF lacks a
// usable text layer. Unreadable files report false so extraction can surface
// the real error.
func NeedsOCR(path string) bool {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	total := reader.NumPage()
	probe := ocrProbePages
	if total < probe {
		probe = total
	}
	if probe == 0 {
		return false
	}

	chars := 0
	for pdfPage := 1; pdfPage <= probe; pdfPage++ {
		chars += len(strings.TrimSpace(extractPageText(reader, pdfPage)))
	}
	return chars/probe < ocrProbeMinChars
}

// PDFPageCount returns the physical page count without extracting text.
func PDFPageCount(path string) (int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, pipeerr.ExtractError(
			fmt.Sprintf("open pdf %s", filepath.Base(path)), err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}
