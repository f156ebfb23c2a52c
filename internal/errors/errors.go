package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnsupportedLanguage indicates no grammar or evaluator exists for a language
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// ParseFailed indicates the tree-sitter parse of a document failed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// DocumentDisposed indicates the document was closed
	DocumentDisposed ErrorCode = "DOCUMENT_DISPOSED"
	// NodeNotFound indicates a node id outside the arena or no longer alive
	NodeNotFound ErrorCode = "NODE_NOT_FOUND"
	// InvalidEdit indicates a structurally impossible tree or text edit
	InvalidEdit ErrorCode = "INVALID_EDIT"
	// StoreUnavailable indicates the remapping store could not be opened
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ConfigInvalid indicates a configuration value failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// CGORequired indicates a tree-sitter operation in a binary built without cgo
	CGORequired ErrorCode = "CGO_REQUIRED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// LitError is an error with a stable code, a message and optional suggestions
type LitError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a LitError with the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *LitError {
	return &LitError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *LitError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *LitError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LitError) Unwrap() error {
	return e.cause
}

// Is matches another LitError by code so errors.Is works against code sentinels.
func (e *LitError) Is(target error) bool {
	t, ok := target.(*LitError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WithDetails adds details to the error
func (e *LitError) WithDetails(details interface{}) *LitError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first LitError in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var le *LitError
	if stderrors.As(err, &le) {
		return le.Code
	}
	return InternalError
}

// HasCode reports whether err's chain contains a LitError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &LitError{Code: code})
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	CGORequired: {
		{
			Type:        RunCommand,
			Command:     "CGO_ENABLED=1 go build ./cmd/livelits",
			Safe:        true,
			Description: "Rebuild with cgo so tree-sitter grammars are linked",
		},
	},
	UnsupportedLanguage: {
		{
			Type:        OpenDocs,
			URL:         "https://tree-sitter.github.io/tree-sitter/#parsers",
			Description: "Supported languages: go, kotlin, java, javascript",
		},
	},
	StoreUnavailable: {
		{
			Type:        RunCommand,
			Command:     "livelits watch --store=memory",
			Safe:        true,
			Description: "Fall back to the in-memory remapping store",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
