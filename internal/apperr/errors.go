// Package apperr defines the error taxonomy shared by the transport, cache and
// controller layers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport failure")
	ErrValidation = errors.New("validation failed")
	ErrConfig     = errors.New("invalid configuration")
)

// ConfigError reports a setting that prevents the process from starting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// TransportError is a network or HTTP failure talking to the notes service.
// Status is 0 when no response was received.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return "transport: " + msg
	}
	return fmt.Sprintf("transport: %d %s: %s", e.Status, http.StatusText(e.Status), msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ValidationError is a 4xx rejection of a create request.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a delete of a note the service no longer has.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("note %d: not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
