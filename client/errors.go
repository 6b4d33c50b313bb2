package client

import (
	"errors"
	"fmt"
	"net/http"
)

// UpstreamError reports a non-2xx platform response. It carries the status
// and a bounded slice of the body for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform returned status %d", e.Status)
	}
	return fmt.Sprintf("platform returned status %d: %s", e.Status, e.Body)
}

// NetworkError reports that no usable response was received: transport
// failure, timeout, or an open circuit breaker.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("platform unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthExpired reports whether err is, or wraps, a 401 from the platform.
func IsAuthExpired(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusUnauthorized
}
