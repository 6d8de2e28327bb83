package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx API response.
type Error struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"-"`
	// Message is the server's error message.
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API. Note that the
// server answers 404 both for missing characters and for characters owned
// by someone else.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401, i.e. the bearer token is
// missing, expired or invalid.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsConflict reports whether err is a 409, e.g. a taken email or username
// at registration.
func IsConflict(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// parseError turns an error response body into an *Error. Bodies are
// expected as {"error": "..."}; anything else is passed through raw.
func parseError(statusCode int, body []byte) error {
	var e Error
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		e.StatusCode = statusCode
		return &e
	}
	return &Error{StatusCode: statusCode, Message: string(body)}
}
