package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for pipeline failure modes.
// Static reconstruction itself never fails; these cover fetching, browsing and storage.
type ErrorCode string

const (
	// FetchFailed indicates a network request could not be completed
	FetchFailed ErrorCode = "FETCH_FAILED"
	// HTTPStatus indicates the server answered with a non-2xx status
	HTTPStatus ErrorCode = "HTTP_STATUS"
	// NoSourceMap indicates a script carries no sourceMappingURL comment
	NoSourceMap ErrorCode = "NO_SOURCE_MAP"
	// InvalidSourceMap indicates a source map could not be decoded
	InvalidSourceMap ErrorCode = "INVALID_SOURCE_MAP"
	// BrowserUnavailable indicates Chrome could not be launched or reached
	BrowserUnavailable ErrorCode = "BROWSER_UNAVAILABLE"
	// InvalidURL indicates a target or asset URL is malformed or unsupported
	InvalidURL ErrorCode = "INVALID_URL"
	// ConfigInvalid indicates configuration or targets file problems
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// StoreFailed indicates writing output or the ledger failed
	StoreFailed ErrorCode = "STORE_FAILED"
	// InvalidRequest indicates a malformed API request
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// PayloadTooLarge indicates a request body over server.maxBodyBytes
	PayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// Unauthorized indicates a missing or wrong API token
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// NotFound indicates an unknown run or resource
	NotFound ErrorCode = "NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Tool        string        `json:"tool,omitempty"`
	Description string        `json:"description,omitempty"`
}

// ChunkmapError carries a stable code, a message and optional details.
type ChunkmapError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a ChunkmapError with the default fixes for its code.
func New(code ErrorCode, message string) *ChunkmapError {
	return &ChunkmapError{Code: code, Message: message, SuggestedFixes: GetSuggestedFixes(code)}
}

// Wrap creates a ChunkmapError around cause.
func Wrap(code ErrorCode, message string, cause error) *ChunkmapError {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface
func (e *ChunkmapError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ChunkmapError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ChunkmapError) WithDetails(details interface{}) *ChunkmapError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first ChunkmapError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ce *ChunkmapError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalError
}

// HasCode reports whether err's chain holds a ChunkmapError with code.
func HasCode(err error, code ErrorCode) bool {
	var ce *ChunkmapError
	for err != nil {
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.cause
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	BrowserUnavailable: {
		{
			Type:        InstallTool,
			Tool:        "chromium",
			Description: "Install Chrome or Chromium, or point browser.bin at an existing binary",
		},
		{
			Type:        RunCommand,
			Command:     "chunkmap crawl --no-browser --url ${url}",
			Description: "Discover scripts from static HTML instead",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditConfig,
			Key:         "${field}",
			Description: "Fix the reported field in .chunkmap/config.json",
		},
	},
	Unauthorized: {
		{
			Type:        RunCommand,
			Command:     "chunkmap token",
			Description: "Generate a token and store its hash in server.tokenHash",
		},
	},
	HTTPStatus: {
		{
			Type:        EditConfig,
			Key:         "fetch.userAgent",
			Description: "Some CDNs reject unknown user agents",
		},
	},
	FetchFailed: {
		{
			Type:        EditConfig,
			Key:         "fetch.timeoutMs",
			Description: "Increase the request timeout for slow hosts",
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
