package chunk

import (
	"errors"
	"fmt"
)

// Error codes. The numeric band identifies the category: 1xx configuration,
// 2xx extraction, 3xx budget, 4xx input.
const (
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeWindowConfig   = "ERR_102_WINDOW_CONFIG"
	ErrCodeRuleConfig     = "ERR_103_RULE_CONFIG"
	ErrCodeUnknownLang    = "ERR_201_UNKNOWN_LANGUAGE"
	ErrCodeParseFailed    = "ERR_202_PARSE_FAILED"
	ErrCodeBudgetViolated = "ERR_301_BUDGET_VIOLATED"
	ErrCodeCorruptInput   = "ERR_401_CORRUPT_INPUT"
)

// Category groups error codes for handling and logging.
type Category string

const (
	CategoryConfig     Category = "Config"
	CategoryExtraction Category = "Extraction"
	CategoryBudget     Category = "Budget"
	CategoryInput      Category = "Input"
)

// ChunkerError is the structured error type for the engine. Configuration
// errors are the only errors raised synchronously at setup; everything
// else degrades to warnings on the per-file Result.
type ChunkerError struct {
	// Code is the unique error code (e.g., "ERR_101_CONFIG_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category.
	Category Category

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ChunkerError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ChunkerError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works with ChunkerError.
func (e *ChunkerError) Is(target error) bool {
	if t, ok := target.(*ChunkerError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error for
// method chaining.
func (e *ChunkerError) WithDetail(key, value string) *ChunkerError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// NewError creates a ChunkerError with the given code and message.
func NewError(code, message string, cause error) *ChunkerError {
	return &ChunkerError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// ConfigError creates a configuration error. These are raised at setup
// time, never mid-run.
func ConfigError(message string, cause error) *ChunkerError {
	return NewError(ErrCodeConfigInvalid, message, cause)
}

// IsConfigError reports whether err is any configuration-category error.
func IsConfigError(err error) bool {
	var ce *ChunkerError
	if errors.As(err, &ce) {
		return ce.Category == CategoryConfig
	}
	return false
}

func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryExtraction
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryExtraction
	case '3':
		return CategoryBudget
	case '4':
		return CategoryInput
	}
	return CategoryExtraction
}

// Warning codes attached to per-file results.
const (
	WarnExtraction   = "WARN_EXTRACTION"
	WarnBudget       = "WARN_BUDGET"
	WarnCorruptInput = "WARN_CORRUPT_INPUT"
	WarnDepth        = "WARN_DEPTH_EXCEEDED"
)

// Warning is a non-fatal problem scoped to one file or chunk. The engine
// skips, warns, and continues.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ChunkID string `json:"chunk_id,omitempty"` // Set when the warning concerns a specific chunk
}

func warnf(code, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}
