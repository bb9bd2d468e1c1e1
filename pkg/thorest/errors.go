package thorest

import (
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is returned for non-2xx node responses.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	// Body is the trimmed response body, Thor puts plain text error
	// descriptions there.
	Body string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d/%s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary returns true for errors that may go away on retry: 5xx and
// 429 Too Many Requests.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// NewHTTPError creates an HTTPError, the body is truncated to a sane size.
func NewHTTPError(method, path string, code int, body []byte) *HTTPError {
	const maxBody = 512
	b := strings.TrimSpace(string(body))
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return &HTTPError{Method: method, Path: path, StatusCode: code, Body: b}
}
