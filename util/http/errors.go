package http

import (
	"errors"
	"fmt"
)

// StatusError is returned by DoHTTPRequest when the server answers outside 2xx.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.StatusCode, string(e.Body))
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
