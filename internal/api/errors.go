package api

import (
	"encoding/json"
	"errors"
	"net/http"

	rerrors "inferd/internal/errors"
)

// ErrorResponse represents an HTTP error response. Detail carries the
// human-readable reason in the shape existing router clients expect.
type ErrorResponse struct {
	Error          string              `json:"error"`
	Code           string              `json:"code"`
	Detail         string              `json:"detail"`
	Details        interface{}         `json:"details,omitempty"`
	SuggestedFixes []rerrors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response with an explicit status
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error:  http.StatusText(status),
		Code:   string(rerrors.InternalError),
		Detail: err.Error(),
	}

	var re *rerrors.RouterError
	if errors.As(err, &re) {
		resp.Code = string(re.Code)
		resp.Detail = re.Message
		resp.Details = re.Details
		resp.SuggestedFixes = re.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteRouterError writes err with the status its code maps to
func WriteRouterError(w http.ResponseWriter, err *rerrors.RouterError) {
	WriteError(w, err, MapErrorToStatus(err.Code))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code rerrors.ErrorCode) int {
	switch code {
	case rerrors.Unauthorized:
		return http.StatusUnauthorized // 401
	case rerrors.InvalidRequest, rerrors.StreamingUnsupported:
		return http.StatusBadRequest // 400
	case rerrors.MethodNotAllowed:
		return http.StatusMethodNotAllowed // 405
	case rerrors.NotFound, rerrors.UnknownSession:
		return http.StatusNotFound // 404
	case rerrors.ResetDisabled:
		return http.StatusForbidden // 403
	case rerrors.InferenceFailure, rerrors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteRouterError(w, rerrors.New(rerrors.InvalidRequest, message, nil))
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteRouterError(w, rerrors.New(rerrors.NotFound, message, nil))
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string) {
	WriteRouterError(w, rerrors.New(rerrors.InternalError, message, nil))
}

// allowMethod writes a 405 and returns false unless r uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteRouterError(w, rerrors.New(rerrors.MethodNotAllowed, "Method not allowed", nil).
		WithDetails(map[string]string{"allowed": method}))
	return false
}
