package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is a failed request: either the server answered with a
// non-2xx status (StatusCode set, Body holds the response text) or the
// request never completed (StatusCode 0, Err holds the cause).
type TransportError struct {
	Op         string // "upload", "status", "result", "preview", "download", "stream", "health"
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		body := e.Body
		if body == "" {
			body = http.StatusText(e.StatusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
