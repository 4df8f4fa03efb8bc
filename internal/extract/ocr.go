package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	pipeerr "github.com/theolab/theoindex/internal/errors"
	"github.com/theolab/theoindex/internal/pagemap"
)

// detectBandDPI is the reduced rasterization resolution for page-number
// band OCR. Full-page OCR uses the configured DPI.
const detectBandDPI = 150

// bandFraction is how much of the page height a margin band covers.
const bandFraction = 0.10

// OCRConfig configures the external OCR toolchain.
type OCRConfig struct {
	// Languages is the tesseract language string, e.g. "kor+deu+eng+grc+heb".
	Languages string
	// DPI for full-page rasterization.
	DPI int
	// TesseractPath and PdftoppmPath override PATH lookup when set.
	TesseractPath string
	PdftoppmPath  string
}

// OCRClient rasterizes PDF pages with pdftoppm and reads them with
// tesseract. Both binaries are external; Available reports whether the
// toolchain is usable.
type OCRClient struct {
	cfg       OCRConfig
	tesseract string
	pdftoppm  string
}

// NewOCRClient resolves the toolchain binaries. A client is always returned;
// check Available before relying on it.
func NewOCRClient(cfg OCRConfig) *OCRClient {
	if cfg.Languages == "" {
		cfg.Languages = "kor+deu+eng+grc+heb"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}

	c := &OCRClient{cfg: cfg}
	c.tesseract = resolveBinary(cfg.TesseractPath, "tesseract")
	c.pdftoppm = resolveBinary(cfg.PdftoppmPath, "pdftoppm")
	return c
}

func resolveBinary(override, name string) string {
	if override != "" {
		return override
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// Available reports whether both pdftoppm and tesseract were found.
func (c *OCRClient) Available() bool {
	return c != nil && c.tesseract != "" && c.pdftoppm != ""
}

// Page OCRs one full PDF page and returns its raw text.
func (c *OCRClient) Page(ctx context.Context, path string, pdfPage int) (string, error) {
	img, err := c.rasterize(ctx, path, pdfPage, c.cfg.DPI)
	if err != nil {
		return "", err
	}
	return c.recognize(ctx, img, pdfPage)
}

// Band OCRs only the top or bottom margin of a page, at reduced resolution.
// Used by page-number detection.
func (c *OCRClient) Band(ctx context.Context, path string, pdfPage int, band pagemap.Band) (string, error) {
	raw, err := c.rasterize(ctx, path, pdfPage, detectBandDPI)
	if err != nil {
		return "", err
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("decode rasterized page %d", pdfPage), err)
	}

	bounds := img.Bounds()
	bandHeight := int(float64(bounds.Dy()) * bandFraction)
	var rect image.Rectangle
	if band == pagemap.BandTop {
		rect = image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+bandHeight)
	} else {
		rect = image.Rect(bounds.Min.X, bounds.Max.Y-bandHeight, bounds.Max.X, bounds.Max.Y)
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	si, ok := img.(subImager)
	if !ok {
		return "", pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("crop rasterized page %d", pdfPage), nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, si.SubImage(rect)); err != nil {
		return "", pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("encode band of page %d", pdfPage), err)
	}
	return c.recognize(ctx, buf.Bytes(), pdfPage)
}

// rasterize renders one page to PNG via pdftoppm.
func (c *OCRClient) rasterize(ctx context.Context, path string, pdfPage int, dpi int) ([]byte, error) {
	if !c.Available() {
		return nil, pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			"ocr toolchain not installed", nil).
			WithSuggestion("install poppler (pdftoppm) and tesseract with language packs")
	}

	dir, err := os.MkdirTemp("", "theoindex-ocr-*")
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeOCRPageFailed, "create ocr temp dir", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	page := strconv.Itoa(pdfPage)
	cmd := exec.CommandContext(ctx, c.pdftoppm,
		"-png", "-r", strconv.Itoa(dpi), "-f", page, "-l", page,
		path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("pdftoppm page %d: %s", pdfPage, strings.TrimSpace(string(out))), err)
	}

	// pdftoppm pads the page number in the output name; take whatever it wrote.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return nil, pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("pdftoppm produced no image for page %d", pdfPage), err)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("read rasterized page %d", pdfPage), err)
	}
	return data, nil
}

// recognize feeds a PNG to tesseract on stdin and returns the text.
func (c *OCRClient) recognize(ctx context.Context, img []byte, pdfPage int) (string, error) {
	cmd := exec.CommandContext(ctx, c.tesseract,
		"stdin", "stdout", "-l", c.cfg.Languages, "--psm", "1")
	cmd.Stdin = bytes.NewReader(img)

	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return "", pipeerr.New(pipeerr.ErrCodeOCRPageFailed,
			fmt.Sprintf("tesseract page %d: %s", pdfPage, strings.TrimSpace(errOut.String())), err)
	}
	return out.String(), nil
}

// PDFPageSource adapts a PDF file to the page-number detector: native text
// from the text layer, bands through the OCR client. Close releases the
// underlying file.
type PDFPageSource struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	ocr    *OCRClient
}

// NewPDFPageSource opens a detection source for one PDF. The OCR client may
// be nil; band requests then fail and detection stays text-only.
func NewPDFPageSource(path string, ocr *OCRClient) (*PDFPageSource, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, pipeerr.ExtractError(
			fmt.Sprintf("open pdf %s", filepath.Base(path)), err)
	}
	return &PDFPageSource{path: path, file: f, reader: reader, ocr: ocr}, nil
}

// TotalPages is the physical page count.
func (s *PDFPageSource) TotalPages() int { return s.reader.NumPage() }

// Close releases the underlying file.
func (s *PDFPageSource) Close() error { return s.file.Close() }

func (s *PDFPageSource) PageText(pdfPage int) (string, error) {
	return extractPageText(s.reader, pdfPage), nil
}

func (s *PDFPageSource) OCRBand(ctx context.Context, pdfPage int, band pagemap.Band) (string, error) {
	if !s.ocr.Available() {
		return "", pipeerr.New(pipeerr.ErrCodeOCRPageFailed, "ocr toolchain not installed", nil)
	}
	return s.ocr.Band(ctx, s.path, pdfPage, band)
}
