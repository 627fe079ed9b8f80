package chain

import (
	"errors"
	"fmt"
)

// ErrNoSigner is returned by actions that must sign when no wallet is
// connected.
var ErrNoSigner = errors.New("no wallet connected")

// ErrNoApplication is returned by state reads before any application was
// created in the run.
var ErrNoApplication = errors.New("no application has been created in this run")

// RequestError is a failed call to the node.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Response is the payload shown to the user next to the failure.
func (e *RequestError) Response() any {
	return map[string]any{
		"operation": e.Op,
		"message":   e.Err.Error(),
	}
}
