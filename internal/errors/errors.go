package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// Unauthorized indicates a missing or wrong bearer credential
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// InvalidRequest indicates a malformed request body
	InvalidRequest ErrorCode = "INVALID_REQUEST"
	// StreamingUnsupported indicates the client asked for a streamed response
	StreamingUnsupported ErrorCode = "STREAMING_UNSUPPORTED"
	// MethodNotAllowed indicates a known route called with the wrong method
	MethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// NotFound indicates an unknown route
	NotFound ErrorCode = "NOT_FOUND"
	// InferenceFailure indicates the inference engine failed
	InferenceFailure ErrorCode = "INFERENCE_FAILURE"
	// UnknownSession indicates a registry miss
	UnknownSession ErrorCode = "UNKNOWN_SESSION"
	// ResetDisabled indicates the reset route is turned off
	ResetDisabled ErrorCode = "RESET_DISABLED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// SetEnv suggests setting an environment variable
	SetEnv FixActionType = "set-env"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	EnvVar      string        `json:"envVar,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// RouterError represents an inferd error with a stable code and message
type RouterError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // not exported to JSON
}

// New creates a RouterError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *RouterError {
	return &RouterError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *RouterError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RouterError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *RouterError) WithDetails(details interface{}) *RouterError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first RouterError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var re *RouterError
	if errors.As(err, &re) {
		return re.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	Unauthorized: {
		{
			Type:        SetEnv,
			EnvVar:      "API_KEY",
			Description: "Configure the shared secret and send it as 'Authorization: Bearer <key>'",
		},
	},
	StreamingUnsupported: {
		{
			Type:        OpenDocs,
			URL:         "/openapi.json",
			Description: "Send the request again with stream=false",
		},
	},
	ResetDisabled: {
		{
			Type:        SetEnv,
			EnvVar:      "INFERD_ENABLE_RESET",
			Description: "Reset is only available on development servers; set INFERD_ENABLE_RESET=true",
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
