// Package errors provides structured error handling for contentsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (missing capabilities, invalid config)
//   - 2XX: Content and IO errors (stale references, unreadable attachments)
//   - 3XX: Backend errors (search client failures)
//   - 4XX: Validation errors (bad input, unresolvable hits)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryContent indicates content resolution and IO errors.
	CategoryContent Category = "CONTENT"
	// CategoryBackend indicates search backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error; the component must not start.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the caller can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound    = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_102_CONFIG_INVALID"
	ErrCodeCapabilityMissing = "ERR_104_CAPABILITY_MISSING"
	ErrCodeCategoryUnknown   = "ERR_105_CATEGORY_UNKNOWN"

	// Content / IO errors (200-299)
	ErrCodeFileNotFound    = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFileTooLarge    = "ERR_204_FILE_TOO_LARGE"
	ErrCodeIndexLocked     = "ERR_206_INDEX_LOCKED"
	ErrCodeContentNotFound = "ERR_207_CONTENT_NOT_FOUND"
	ErrCodeAttachmentRead  = "ERR_208_ATTACHMENT_READ"

	// Backend errors (300-399)
	ErrCodeBackendUnavailable = "ERR_304_BACKEND_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput     = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidReference = "ERR_406_INVALID_REFERENCE"
	ErrCodeUnresolvableHit  = "ERR_407_UNRESOLVABLE_HIT"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeIndexFailed = "ERR_505_INDEX_FAILED"
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
		return CategoryContent
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCapabilityMissing, ErrCodeCategoryUnknown:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Nothing in this module retries; the flag is surfaced for callers.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
