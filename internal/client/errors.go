package client

import (
	"errors"
	"fmt"
)

// Sentinel kinds for client errors.
var (
	ErrBackpressure = errors.New("server backpressure")
	ErrNotFound     = errors.New("not found")
	ErrNotReady     = errors.New("job not ready")
	ErrJobFailed    = errors.New("job failed")
	ErrUnhealthy    = errors.New("service unhealthy")
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}
