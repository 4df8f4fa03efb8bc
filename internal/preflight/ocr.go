package preflight

import (
	"fmt"
	"os/exec"
	"strings"
)

// CheckOCRTools verifies tesseract and pdftoppm are available when OCR
// is enabled. Missing tools downgrade scanned PDFs to native text
// extraction only, so this check never fails hard.
func (c *Checker) CheckOCRTools() CheckResult {
	if !c.cfg.OCR.Enabled {
		return CheckResult{
			Name:    "OCR Toolchain",
			Status:  StatusPass,
			Message: "OCR disabled in configuration",
		}
	}

	var missing []string
	if _, err := lookupTool(c.cfg.OCR.TesseractPath, "tesseract"); err != nil {
		missing = append(missing, "tesseract")
	}
	if _, err := lookupTool(c.cfg.OCR.PdftoppmPath, "pdftoppm"); err != nil {
		missing = append(missing, "pdftoppm")
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:    "OCR Toolchain",
			Status:  StatusWarn,
			Message: fmt.Sprintf("Missing: %s", strings.Join(missing, ", ")),
			Details: "Scanned pages will be skipped; install tesseract-ocr and poppler-utils",
		}
	}

	return CheckResult{
		Name:    "OCR Toolchain",
		Status:  StatusPass,
		Message: fmt.Sprintf("tesseract and pdftoppm found (languages %s)", c.cfg.OCR.Languages),
	}
}

// lookupTool resolves a tool path, preferring an explicit configured
// path over a PATH search.
func lookupTool(configured, name string) (string, error) {
	if configured != "" {
		return exec.LookPath(configured)
	}
	return exec.LookPath(name)
}
