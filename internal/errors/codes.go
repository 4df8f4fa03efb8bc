// Package errors provides structured error handling for theoindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Extraction and archive I/O errors
//   - 3XX: Embedder/network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryExtract indicates document extraction and archive I/O errors.
	CategoryExtract Category = "EXTRACT"
	// CategoryEmbed indicates embedder and network errors.
	CategoryEmbed Category = "EMBED"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the batch can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
//
// The pipeline isolates failures to the smallest unit possible: a page
// failure never fails its file, a file failure never fails the batch.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Extraction and archive errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeExtractFailed  = "ERR_202_EXTRACT_FAILED"
	ErrCodeOCRPageFailed  = "ERR_203_OCR_PAGE_FAILED"
	ErrCodeZeroYield      = "ERR_204_ZERO_YIELD"
	ErrCodeCorruptArchive = "ERR_205_CORRUPT_ARCHIVE"
	ErrCodeCorruptIndex   = "ERR_206_CORRUPT_INDEX"

	// Embedder errors (300-399)
	ErrCodeEmbedTimeout        = "ERR_301_EMBED_TIMEOUT"
	ErrCodeEmbedderUnavailable = "ERR_302_EMBEDDER_UNAVAILABLE"
	ErrCodeEmbedFailed         = "ERR_303_EMBED_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidMapping    = "ERR_404_INVALID_MAPPING"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeStoreFailed    = "ERR_502_STORE_FAILED"
	ErrCodeSearchFailed   = "ERR_503_SEARCH_FAILED"
	ErrCodeChunkingFailed = "ERR_504_CHUNKING_FAILED"
	ErrCodeLockHeld       = "ERR_505_LOCK_HELD"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryExtract
	case '3':
		return CategoryEmbed
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeLockHeld:
		return SeverityFatal
	case ErrCodeZeroYield, ErrCodeOCRPageFailed:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedTimeout, ErrCodeEmbedderUnavailable:
		return true
	default:
		return false
	}
}
