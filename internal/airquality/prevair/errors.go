package prevair

import (
	"errors"
	"fmt"
)

// NetworkError reports that the upstream could not be reached: transport
// failure, timeout or an open circuit breaker.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("prevair: reach %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError reports a response with a status other than 200.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("prevair: %s returned status %d", e.URL, e.StatusCode)
}

// ParseError reports a malformed body or a missing or ill-typed row field.
// Field is -1 when the whole body could not be decoded.
type ParseError struct {
	Field int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("prevair: decode body: %v", e.Err)
	}
	return fmt.Sprintf("prevair: field %d: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNoData reports whether err means the upstream had no usable data. Such
// errors are logged and the affected reading is left absent.
func IsNoData(err error) bool {
	var netErr *NetworkError
	var httpErr *HTTPError
	var parseErr *ParseError
	return errors.As(err, &netErr) || errors.As(err, &httpErr) || errors.As(err, &parseErr)
}
