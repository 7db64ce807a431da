package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(Unauthorized, "Invalid API key", cause)

	if err.Code != Unauthorized {
		t.Errorf("Code = %v, want %v", err.Code, Unauthorized)
	}
	if err.Message != "Invalid API key" {
		t.Errorf("Message = %q, want %q", err.Message, "Invalid API key")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestRouterError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      InferenceFailure,
			message:   "inference failed",
			cause:     errors.New("connection refused"),
			wantParts: []string{"INFERENCE_FAILURE", "inference failed", "connection refused"},
		},
		{
			name:      "without cause",
			code:      UnknownSession,
			message:   "session 'session_abc' not found",
			cause:     nil,
			wantParts: []string{"UNKNOWN_SESSION", "session 'session_abc' not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause).Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestRouterError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := New(InvalidRequest, "bad body", nil)
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestRouterError_WithDetails(t *testing.T) {
	err := New(InvalidRequest, "messages must not be empty", nil)

	result := err.WithDetails(map[string]string{"field": "messages"})

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"router error", New(Unauthorized, "nope", nil), Unauthorized},
		{"wrapped router error", fmt.Errorf("handler: %w", New(InferenceFailure, "boom", nil)), InferenceFailure},
		{"plain error", errors.New("plain"), InternalError},
		{"nil", nil, InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{Unauthorized, false, 1},
		{StreamingUnsupported, false, 1},
		{ResetDisabled, false, 1},
		{InferenceFailure, true, 0},
		{NotFound, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		Unauthorized,
		InvalidRequest,
		StreamingUnsupported,
		MethodNotAllowed,
		NotFound,
		InferenceFailure,
		UnknownSession,
		ResetDisabled,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
