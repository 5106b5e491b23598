// Package apierr maps service errors onto the JSON API's wire format.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/validation"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// Messages shared between the mapping and handlers
const (
	MessageRetry       = "Failed to process request, try again"
	MessageNotFound    = "Not found"
	MessageRateLimited = "You have exceeded the allowed requests, please wait"
	MessageExpired     = "Token Expired"
	MessageNotObject   = "API only accepts object payloads"
)

// httpError combines an HTTP status code with a message
type httpError struct {
	status  int
	message string
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.message
}

// New creates an error written with the given status. An empty message
// uses the default text of the status.
func New(status int, message string) error {
	if status < 400 {
		status = http.StatusTeapot
	}
	if message == "" {
		message = StatusMessage(status)
	}
	return &httpError{status: status, message: message}
}

// StatusMessage is the default message of an error status
func StatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case http.StatusRequestEntityTooLarge:
		return "Payload Too Large"
	case http.StatusTooManyRequests:
		return "Too Many Requests"
	case http.StatusInternalServerError:
		return "Internal Server Error"
	case http.StatusNotImplemented:
		return "Not Implemented"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	}
	return "I'm a teapot"
}

// IsNotFound reports whether err means the requested entity does not exist
// and should read as an empty object
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrPlayerNotFound) ||
		errors.Is(err, model.ErrStatsNotFound) ||
		errors.Is(err, model.ErrGuildNotFound)
}

// WriteError writes an error response to the response writer. Domain
// failures are reported with status 200; statuses are kept for transport
// failures.
func WriteError(w http.ResponseWriter, err error) {
	if IsNotFound(err) {
		write(w, http.StatusOK, struct{}{})
		return
	}
	he := toHTTPError(err)
	write(w, he.status, ErrorResponse{Error: 1, Message: he.message})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *validation.Error
	if errors.As(err, &ve) {
		return &httpError{http.StatusOK, ve.Message}
	}

	switch {
	case errors.Is(err, model.ErrMailNotFound):
		return &httpError{http.StatusOK, MessageNotFound}
	case errors.Is(err, model.ErrTransient),
		errors.Is(err, model.ErrInvariant),
		errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusOK, MessageRetry}
	case errors.Is(err, model.ErrUnauthorized):
		return &httpError{http.StatusUnauthorized, StatusMessage(http.StatusUnauthorized)}
	case errors.Is(err, model.ErrTokenExpired):
		return &httpError{http.StatusBadRequest, MessageExpired}
	case errors.Is(err, model.ErrTooManyRequests):
		return &httpError{http.StatusTooManyRequests, MessageRateLimited}
	default:
		return &httpError{http.StatusInternalServerError, StatusMessage(http.StatusInternalServerError)}
	}
}
