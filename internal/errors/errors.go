package errors

import (
	"fmt"
)

// SearchError is the structured error type for contentsearch.
// It carries enough context to decide whether a failure is fatal for the
// whole provider, for one client partition, or for a single hit.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_207_CONTENT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category.
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if the operation can be retried by the caller.
	Retryable bool

	// Suggestion is an actionable hint for operators.
	Suggestion string
}

// Sentinels for errors.Is matching. Only the code is compared.
var (
	ErrCapabilityMissing  = &SearchError{Code: ErrCodeCapabilityMissing}
	ErrStaleReference     = &SearchError{Code: ErrCodeContentNotFound}
	ErrUnresolvableHit    = &SearchError{Code: ErrCodeUnresolvableHit}
	ErrBackendUnavailable = &SearchError{Code: ErrCodeBackendUnavailable}
	ErrAttachmentRead     = &SearchError{Code: ErrCodeAttachmentRead}
)

// Error implements the error interface.
func (e *SearchError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a SearchError with the same code.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion.
func (e *SearchError) WithSuggestion(suggestion string) *SearchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SearchError from an existing error. Returns nil for nil.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// CapabilityMissing reports a required collaborator absent at construction time.
func CapabilityMissing(component, capability string) *SearchError {
	return New(ErrCodeCapabilityMissing,
		fmt.Sprintf("%s: %s is required", component, capability), nil).
		WithDetail("component", component).
		WithDetail("capability", capability)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StaleReference reports a reference that no longer resolves to a record.
func StaleReference(ref string, cause error) *SearchError {
	return New(ErrCodeContentNotFound, "content not found: "+ref, cause).
		WithDetail("reference", ref)
}

// UnresolvableHit reports a hit whose payload carries no usable reference.
func UnresolvableHit(message string, cause error) *SearchError {
	return New(ErrCodeUnresolvableHit, message, cause)
}

// BackendUnavailable reports a failed search client call.
func BackendUnavailable(language string, cause error) *SearchError {
	return New(ErrCodeBackendUnavailable, "search client failed", cause).
		WithDetail("language", language)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SearchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SearchError {
	return New(ErrCodeInternal, message, cause)
}

// as finds the first SearchError in the chain.
func as(err error) (*SearchError, bool) {
	for err != nil {
		if se, ok := err.(*SearchError); ok {
			return se, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	se, ok := as(err)
	return ok && se.Retryable
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	se, ok := as(err)
	return ok && se.Severity == SeverityFatal
}

// GetCode extracts the error code from the first SearchError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if se, ok := as(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from the first SearchError in the chain.
func GetCategory(err error) Category {
	if se, ok := as(err); ok {
		return se.Category
	}
	return ""
}
