package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrInvalidJSON is returned when a 2xx response body cannot be parsed as JSON.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// RequestFailedError reports a non-2xx response. Body holds the raw response text.
type RequestFailedError struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: status %d %s: %s", e.Status, e.StatusText, e.Body)
}

// TransportError reports a request that never produced a response
// (DNS failure, refused connection, cancelled context).
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// IsRequestFailed reports whether err carries a RequestFailedError.
func IsRequestFailed(err error) (*RequestFailedError, bool) {
	var target *RequestFailedError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) (*TransportError, bool) {
	var target *TransportError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// statusText strips the numeric code from a status line such as "404 Not Found".
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(status), strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}
