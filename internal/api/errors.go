package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"chunkmap/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var ce *errors.ChunkmapError
	if stderrors.As(err, &ce) {
		resp.Error = ce.Message
		resp.Code = string(ce.Code)
		resp.Details = ce.Details
		resp.SuggestedFixes = ce.SuggestedFixes
	}

	WriteJSON(w, resp, status)
}

// WriteChunkmapError writes err with the status its code maps to.
func WriteChunkmapError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps chunkmap error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.InvalidRequest, errors.InvalidURL:
		return http.StatusBadRequest // 400
	case errors.Unauthorized:
		return http.StatusUnauthorized // 401
	case errors.NotFound, errors.NoSourceMap:
		return http.StatusNotFound // 404
	case errors.PayloadTooLarge:
		return http.StatusRequestEntityTooLarge // 413
	case errors.InvalidSourceMap:
		return http.StatusUnprocessableEntity // 422
	case errors.FetchFailed, errors.HTTPStatus:
		return http.StatusBadGateway // 502
	case errors.BrowserUnavailable, errors.StoreFailed:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteChunkmapError(w, errors.New(errors.InvalidRequest, message))
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteChunkmapError(w, errors.New(errors.NotFound, message))
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string) {
	WriteChunkmapError(w, errors.New(errors.InternalError, message))
}
